package repository

import (
	"context"

	"event-registry/internal/domain"
)

// EventRepository exposes persistence operations for events.
type EventRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, event *domain.Event) (int64, error)
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id int64) error
	GetBySlug(ctx context.Context, slug string) (*domain.Event, error)
	GetByName(ctx context.Context, name string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
}

// RegistrationRepository manages user registrations for events.
type RegistrationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, reg *domain.Registration) (int64, error)
	Delete(ctx context.Context, eventID int64, userID string) error
	Exists(ctx context.Context, eventID int64, userID string) (bool, error)
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Registration, error)
}
