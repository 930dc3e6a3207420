package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

type testStores struct {
	db            *sql.DB
	users         repository.UserRepository
	events        repository.EventRepository
	registrations repository.RegistrationRepository
}

func openTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := testStores{
		db:            db,
		users:         NewUserRepository(db),
		events:        NewEventRepository(db),
		registrations: NewRegistrationRepository(db),
	}
	require.NoError(t, InitAll(context.Background(), s.users, s.events, s.registrations))
	return s
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStores(t)

	user := &domain.User{ID: "u-1", Username: "anna", PasswordHash: "h", Name: "Anna", Admin: true}
	require.NoError(t, s.users.Create(ctx, user))

	byName, err := s.users.GetByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byName.ID)
	assert.True(t, byName.Admin)
	assert.Equal(t, "Anna", byName.Name)

	byID, err := s.users.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "anna", byID.Username)

	hasAdmin, err := s.users.HasAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, hasAdmin)
}

func TestUserRepository_NotFoundAndConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestStores(t)

	_, err := s.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.users.GetByUsername(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.users.Create(ctx, &domain.User{ID: "a", Username: "dup", PasswordHash: "h"}))
	err = s.users.Create(ctx, &domain.User{ID: "b", Username: "dup", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	hasAdmin, err := s.users.HasAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, hasAdmin)
}

func TestEventRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStores(t)

	event := &domain.Event{Name: "Forritarahittingur", Slug: "forritarahittingur", Description: "d"}
	id, err := s.events.Create(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, id, event.ID)

	_, err = s.events.Create(ctx, &domain.Event{Name: "Forritarahittingur", Slug: "other"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	event.Name = "Renamed"
	event.Slug = "renamed"
	require.NoError(t, s.events.Update(ctx, event))

	got, err := s.events.GetBySlug(ctx, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	got, err = s.events.GetByName(ctx, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	list, err := s.events.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.events.Delete(ctx, id))
	assert.ErrorIs(t, s.events.Delete(ctx, id), repository.ErrNotFound)
	_, err = s.events.GetBySlug(ctx, "renamed")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegistrationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStores(t)

	require.NoError(t, s.users.Create(ctx, &domain.User{ID: "u-1", Username: "anna", PasswordHash: "h", Name: "Anna"}))
	eventID, err := s.events.Create(ctx, &domain.Event{Name: "Jól", Slug: "jol"})
	require.NoError(t, err)

	_, err = s.registrations.Create(ctx, &domain.Registration{EventID: eventID, UserID: "u-1", Comment: "hlakka til"})
	require.NoError(t, err)

	_, err = s.registrations.Create(ctx, &domain.Registration{EventID: eventID, UserID: "u-1"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	ok, err := s.registrations.Exists(ctx, eventID, "u-1")
	require.NoError(t, err)
	assert.True(t, ok)

	regs, err := s.registrations.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "anna", regs[0].Username)
	assert.Equal(t, "Anna", regs[0].Name)
	assert.Equal(t, "hlakka til", regs[0].Comment)

	require.NoError(t, s.registrations.Delete(ctx, eventID, "u-1"))
	assert.ErrorIs(t, s.registrations.Delete(ctx, eventID, "u-1"), repository.ErrNotFound)
}

func TestRegistrationRepository_CascadeOnEventDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStores(t)

	require.NoError(t, s.users.Create(ctx, &domain.User{ID: "u-1", Username: "anna", PasswordHash: "h"}))
	eventID, err := s.events.Create(ctx, &domain.Event{Name: "Jól", Slug: "jol"})
	require.NoError(t, err)
	_, err = s.registrations.Create(ctx, &domain.Registration{EventID: eventID, UserID: "u-1"})
	require.NoError(t, err)

	require.NoError(t, s.events.Delete(ctx, eventID))

	ok, err := s.registrations.Exists(ctx, eventID, "u-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
