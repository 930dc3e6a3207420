package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"event-registry/internal/domain"
	"event-registry/internal/storage"
)

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"created_at"`
}

type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
}

type EventResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type EventDetailResponse struct {
	EventResponse
	Registrations []RegistrationResponse `json:"registrations"`
	Registered    *bool                  `json:"registered,omitempty"`
}

type RegistrationResponse struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

type ExportResponse struct {
	Key        string `json:"key"`
	Location   string `json:"location"`
	EventCount int    `json:"event_count"`
	CreatedAt  string `json:"created_at"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Admin:     user.Admin,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func eventToResponse(event domain.Event) EventResponse {
	return EventResponse{
		ID:          event.ID,
		Name:        event.Name,
		Slug:        event.Slug,
		Description: event.Description,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   event.UpdatedAt.Format(time.RFC3339),
	}
}

// registrationToResponse hides user ids unless withUser is set.
func registrationToResponse(reg domain.Registration, withUser bool) RegistrationResponse {
	resp := RegistrationResponse{
		ID:        reg.ID,
		Name:      reg.Name,
		Comment:   reg.Comment,
		CreatedAt: reg.CreatedAt.Format(time.RFC3339),
	}
	if withUser {
		resp.UserID = reg.UserID
	}
	return resp
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
