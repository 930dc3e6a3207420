package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

var (
	// ErrEventExists is returned when another event already uses the name.
	ErrEventExists = errors.New("an event with this name exists")
	// ErrAlreadyRegistered is returned when a user registers twice for one event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
)

const (
	maxEventNameLength   = 64
	maxDescriptionLength = 2000
	maxCommentLength     = 400
)

// EventUpdate carries optional changes; nil fields are left untouched.
type EventUpdate struct {
	Name        *string
	Description *string
}

// EventService coordinates events and registrations.
type EventService interface {
	List(ctx context.Context) ([]domain.Event, error)
	Get(ctx context.Context, slug string) (*domain.Event, error)
	Create(ctx context.Context, name, description string) (*domain.Event, error)
	Update(ctx context.Context, slug string, update EventUpdate) (*domain.Event, error)
	Delete(ctx context.Context, slug string) error
	Register(ctx context.Context, slug, userID, comment string) (*domain.Registration, error)
	Unregister(ctx context.Context, slug, userID string) error
	Registrations(ctx context.Context, slug string) ([]domain.Registration, error)
	IsRegistered(ctx context.Context, eventID int64, userID string) (bool, error)
}

type eventService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	logger        logrus.FieldLogger
}

func NewEventService(events repository.EventRepository, registrations repository.RegistrationRepository, logger logrus.FieldLogger) EventService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &eventService{
		events:        events,
		registrations: registrations,
		logger:        logger,
	}
}

func (s *eventService) List(ctx context.Context) ([]domain.Event, error) {
	return s.events.List(ctx)
}

func (s *eventService) Get(ctx context.Context, slug string) (*domain.Event, error) {
	return s.events.GetBySlug(ctx, slug)
}

func (s *eventService) Create(ctx context.Context, name, description string) (*domain.Event, error) {
	name, slug, err := normalizeEventName(name)
	if err != nil {
		return nil, err
	}
	description, err = normalizeDescription(description)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	event := &domain.Event{
		Name:        name,
		Slug:        slug,
		Description: description,
	}
	if _, err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEventExists
		}
		return nil, err
	}

	s.logger.WithField("slug", event.Slug).Info("event created")
	return event, nil
}

func (s *eventService) Update(ctx context.Context, slug string, update EventUpdate) (*domain.Event, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name, newSlug, err := normalizeEventName(*update.Name)
		if err != nil {
			return nil, err
		}
		if err := s.ensureNameFree(ctx, name, event.ID); err != nil {
			return nil, err
		}
		event.Name = name
		event.Slug = newSlug
	}
	if update.Description != nil {
		description, err := normalizeDescription(*update.Description)
		if err != nil {
			return nil, err
		}
		event.Description = description
	}

	if err := s.events.Update(ctx, event); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEventExists
		}
		return nil, err
	}
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, slug string) error {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, event.ID); err != nil {
		return err
	}
	s.logger.WithField("slug", slug).Info("event deleted")
	return nil
}

func (s *eventService) Register(ctx context.Context, slug, userID, comment string) (*domain.Registration, error) {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment must be at most %d characters", ErrInvalidInput, maxCommentLength)
	}

	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	reg := &domain.Registration{
		EventID: event.ID,
		UserID:  userID,
		Comment: comment,
	}
	if _, err := s.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return reg, nil
}

func (s *eventService) Unregister(ctx context.Context, slug, userID string) error {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.registrations.Delete(ctx, event.ID, userID)
}

func (s *eventService) Registrations(ctx context.Context, slug string) ([]domain.Registration, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, event.ID)
}

func (s *eventService) IsRegistered(ctx context.Context, eventID int64, userID string) (bool, error) {
	return s.registrations.Exists(ctx, eventID, userID)
}

// ensureNameFree rejects a name used by any event other than exceptID.
func (s *eventService) ensureNameFree(ctx context.Context, name string, exceptID int64) error {
	existing, err := s.events.GetByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != exceptID:
		return ErrEventExists
	default:
		return nil
	}
}

func normalizeEventName(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxEventNameLength {
		return "", "", fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxEventNameLength)
	}
	slug := Slugify(name)
	if slug == "" {
		return "", "", fmt.Errorf("%w: name must contain letters or digits", ErrInvalidInput)
	}
	return name, slug, nil
}

func normalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, maxDescriptionLength)
	}
	return description, nil
}
