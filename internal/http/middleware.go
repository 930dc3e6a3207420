package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-registry/internal/auth"
	"event-registry/internal/domain"
)

const (
	userContextKey      = "auth.user"
	requestIDContextKey = "request_id"
	requestIDHeader     = "X-Request-ID"
)

// Authenticator exchanges the Authorization header for a user.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*domain.User, error)
}

// RequirementFunc derives the authorization requirement for a request.
type RequirementFunc func(c *gin.Context) auth.Requirement

func static(req auth.Requirement) RequirementFunc {
	return func(*gin.Context) auth.Requirement { return req }
}

func selfParam(name string) RequirementFunc {
	return func(c *gin.Context) auth.Requirement { return auth.SelfOnly(c.Param(name)) }
}

// authenticate rejects the request unless it carries a valid bearer token.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authn.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			h.abortAuth(c, err)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// optionalAuthenticate attaches the user when a valid token is present and
// otherwise lets the request through anonymously.
func (h *Handler) optionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authn.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case err == nil:
			setUser(c, user)
		case errors.Is(err, auth.ErrUpstreamLookup):
			h.abortAuth(c, err)
			return
		}
		c.Next()
	}
}

// authorize must follow authenticate; a request without a user is denied.
func (h *Handler) authorize(requirement RequirementFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := currentUser(c)
		req := requirement(c)
		if err := auth.Authorize(user, req); err != nil {
			entry := h.log(c).WithField("requirement", req.String())
			if user != nil {
				entry = entry.WithField("user_id", user.ID)
			}
			entry.Info("authorization denied")
			h.abortAuth(c, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) abortAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		c.Header("WWW-Authenticate", `Bearer`)
		abortError(c, http.StatusUnauthorized, "missing token")
	case errors.Is(err, auth.ErrExpiredToken):
		c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="expired token"`)
		abortError(c, http.StatusUnauthorized, "expired token")
	case errors.Is(err, auth.ErrInvalidSignature), errors.Is(err, auth.ErrUnknownSubject):
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		abortError(c, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrForbidden):
		abortError(c, http.StatusForbidden, "forbidden")
	default:
		h.internalError(c, err)
		c.Abort()
	}
}

func setUser(c *gin.Context, user *domain.User) {
	c.Set(userContextKey, user)
	c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), user))
}

func currentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if user, ok := currentUser(c); ok {
			entry = entry.WithField("user_id", user.ID)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log(c).WithField("panic", recovered).Error("handler panicked")
		abortError(c, http.StatusInternalServerError, "internal server error")
	})
}
