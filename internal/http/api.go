package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"event-registry/internal/auth"
	"event-registry/internal/repository"
	"event-registry/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users          service.UserService
	events         service.EventService
	exports        service.ExportService
	authn          Authenticator
	requestTimeout time.Duration
	logger         logrus.FieldLogger
}

func NewHandler(users service.UserService, events service.EventService, exports service.ExportService, authn Authenticator, requestTimeout time.Duration, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:          users,
		events:         events,
		exports:        exports,
		authn:          authn,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// RegisterRoutes mounts every route. Mutating routes run authenticate, then
// authorize, then the handler; the first two abort on failure.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), h.recovery(), corsMiddleware(), requestTimeout(h.requestTimeout))
	router.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "not found")
	})

	authenticated := h.authenticate()
	anyUser := h.authorize(static(auth.Any()))
	adminOnly := h.authorize(static(auth.AdminOnly()))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	users := router.Group("/users")
	{
		users.POST("/register", h.registerUser)
		users.POST("/login", h.login)
		users.GET("/me", authenticated, anyUser, h.me)
		users.GET("/:id", authenticated, h.authorize(selfParam("id")), h.getUser)
	}

	events := router.Group("/events")
	{
		events.GET("", h.optionalAuthenticate(), h.listEvents)
		events.GET("/:slug", h.optionalAuthenticate(), h.getEvent)
		events.POST("", authenticated, adminOnly, h.createEvent)
		events.PATCH("/:slug", authenticated, adminOnly, h.updateEvent)
		events.DELETE("/:slug", authenticated, adminOnly, h.deleteEvent)
		events.POST("/:slug/registrations", authenticated, anyUser, h.registerForEvent)
		events.DELETE("/:slug/registrations", authenticated, anyUser, h.unregisterFromEvent)
	}

	admin := router.Group("/admin", authenticated, adminOnly)
	{
		admin.GET("/users", h.listUsers)
		admin.GET("/events/:slug/registrations", h.listRegistrations)
		admin.POST("/exports", h.createExport)
		admin.GET("/exports", h.listExports)
		admin.GET("/exports/url", h.exportURL)
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type updateEventRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type registrationRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		User:      userToResponse(*session.User),
		Token:     session.Token,
		ExpiresIn: int64(session.ExpiresIn / time.Second),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	resp := make([]EventResponse, len(events))
	for i := range events {
		resp[i] = eventToResponse(events[i])
	}
	c.JSON(http.StatusOK, gin.H{"events": resp})
}

func (h *Handler) getEvent(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.events.Get(ctx, c.Param("slug"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	regs, err := h.events.Registrations(ctx, event.Slug)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	resp := EventDetailResponse{
		EventResponse: eventToResponse(*event),
		Registrations: make([]RegistrationResponse, len(regs)),
	}
	for i := range regs {
		resp.Registrations[i] = registrationToResponse(regs[i], false)
	}
	if user, ok := currentUser(c); ok {
		registered, err := h.events.IsRegistered(ctx, event.ID, user.ID)
		if err != nil {
			h.serviceError(c, err)
			return
		}
		resp.Registered = &registered
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "name is required")
		return
	}

	event, err := h.events.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventToResponse(*event))
}

func (h *Handler) updateEvent(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	event, err := h.events.Update(c.Request.Context(), c.Param("slug"), service.EventUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventToResponse(*event))
}

func (h *Handler) deleteEvent(c *gin.Context) {
	slug := c.Param("slug")
	if err := h.events.Delete(c.Request.Context(), slug); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": slug})
}

func (h *Handler) registerForEvent(c *gin.Context) {
	var req registrationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}

	user, _ := currentUser(c)
	reg, err := h.events.Register(c.Request.Context(), c.Param("slug"), user.ID, req.Comment)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	reg.Name = user.Name
	c.JSON(http.StatusCreated, registrationToResponse(*reg, true))
}

func (h *Handler) unregisterFromEvent(c *gin.Context) {
	user, _ := currentUser(c)
	slug := c.Param("slug")
	if err := h.events.Unregister(c.Request.Context(), slug, user.ID); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unregistered": slug})
}

func (h *Handler) listRegistrations(c *gin.Context) {
	regs, err := h.events.Registrations(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	resp := make([]RegistrationResponse, len(regs))
	for i := range regs {
		resp[i] = registrationToResponse(regs[i], true)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createExport(c *gin.Context) {
	export, err := h.exports.Export(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{
		Key:        export.Key,
		Location:   export.Location,
		EventCount: export.EventCount,
		CreatedAt:  export.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.exports.List(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) exportURL(c *gin.Context) {
	url, err := h.exports.URL(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// serviceError maps service failures to responses; unexpected errors are
// logged and answered with a generic 500.
func (h *Handler) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		abortError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrEventExists),
		errors.Is(err, service.ErrAlreadyRegistered):
		abortError(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		abortError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrStorageDisabled):
		abortError(c, http.StatusServiceUnavailable, err.Error())
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.log(c).WithError(err).Error("internal error")
	abortError(c, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) log(c *gin.Context) logrus.FieldLogger {
	entry := h.logger.WithField("path", c.FullPath())
	if id, ok := c.Get(requestIDContextKey); ok {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

var _ Authenticator = (*auth.Authenticator)(nil)
