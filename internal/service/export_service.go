package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
	"event-registry/internal/storage"
)

// ErrStorageDisabled is returned when no export bucket is configured.
var ErrStorageDisabled = errors.New("storage service not configured")

const exportURLTTL = 15 * time.Minute

// ExportOptions locates snapshots in object storage.
type ExportOptions struct {
	Bucket    string
	KeyPrefix string
	Now       func() time.Time
}

// Export describes one uploaded snapshot.
type Export struct {
	Key        string
	Location   string
	EventCount int
	CreatedAt  time.Time
}

// ExportService snapshots events and their registrations to object storage.
type ExportService interface {
	Export(ctx context.Context) (*Export, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
	URL(ctx context.Context, key string) (string, error)
}

type exportService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	store         storage.Service
	opts          ExportOptions
	logger        logrus.FieldLogger
}

// NewExportService returns a service whose operations fail with
// ErrStorageDisabled when store is nil or no bucket is set.
func NewExportService(events repository.EventRepository, registrations repository.RegistrationRepository, store storage.Service, opts ExportOptions, logger logrus.FieldLogger) ExportService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &exportService{
		events:        events,
		registrations: registrations,
		store:         store,
		opts:          opts,
		logger:        logger,
	}
}

type snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Events      []snapshotEvent `json:"events"`
}

type snapshotEvent struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	Slug          string                 `json:"slug"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Registrations []snapshotRegistration `json:"registrations"`
}

type snapshotRegistration struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *exportService) enabled() bool {
	return s.store != nil && s.opts.Bucket != ""
}

func (s *exportService) Export(ctx context.Context) (*Export, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}

	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	snap := snapshot{GeneratedAt: now, Events: make([]snapshotEvent, 0, len(events))}
	for _, event := range events {
		regs, err := s.registrations.ListByEvent(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		snap.Events = append(snap.Events, toSnapshotEvent(event, regs))
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(s.opts.KeyPrefix, fmt.Sprintf("events-%s-%s.json", now.Format("20060102T150405Z"), uuid.NewString()))
	location, err := s.store.PutObject(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      s.opts.Bucket,
		Key:         key,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"location": location, "events": len(events)}).Info("export uploaded")
	return &Export{Key: key, Location: location, EventCount: len(events), CreatedAt: now}, nil
}

func (s *exportService) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}
	prefix := s.opts.KeyPrefix
	if prefix != "" {
		prefix += "/"
	}
	return s.store.ListObjects(ctx, s.opts.Bucket, prefix)
}

// URL presigns a download link; only keys under the export prefix are served.
func (s *exportService) URL(ctx context.Context, key string) (string, error) {
	if !s.enabled() {
		return "", ErrStorageDisabled
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid export key", ErrInvalidInput)
	}
	if s.opts.KeyPrefix != "" && !strings.HasPrefix(key, s.opts.KeyPrefix+"/") {
		return "", fmt.Errorf("%w: invalid export key", ErrInvalidInput)
	}
	return s.store.GetObjectURL(ctx, s.opts.Bucket, key, exportURLTTL)
}

func toSnapshotEvent(event domain.Event, regs []domain.Registration) snapshotEvent {
	out := snapshotEvent{
		ID:            event.ID,
		Name:          event.Name,
		Slug:          event.Slug,
		Description:   event.Description,
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
		Registrations: make([]snapshotRegistration, len(regs)),
	}
	for i, reg := range regs {
		out.Registrations[i] = snapshotRegistration{
			UserID:    reg.UserID,
			Username:  reg.Username,
			Name:      reg.Name,
			Comment:   reg.Comment,
			CreatedAt: reg.CreatedAt,
		}
	}
	return out
}
