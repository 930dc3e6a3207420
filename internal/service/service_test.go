package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"event-registry/internal/auth"
	"event-registry/internal/repository"
	"event-registry/internal/repository/sqlite"
)

type fixture struct {
	users         repository.UserRepository
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	passwords     *auth.Passwords
	issuer        *auth.Issuer
	logger        *logrus.Logger
	hook          *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	passwords, err := auth.NewPasswords(auth.MinPasswordCost, logger)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(auth.Config{Secret: []byte("test-secret"), TTL: 900 * time.Second})
	require.NoError(t, err)

	f := &fixture{
		users:         sqlite.NewUserRepository(db),
		events:        sqlite.NewEventRepository(db),
		registrations: sqlite.NewRegistrationRepository(db),
		passwords:     passwords,
		issuer:        issuer,
		logger:        logger,
		hook:          hook,
	}
	require.NoError(t, sqlite.InitAll(context.Background(), f.users, f.events, f.registrations))
	return f
}

func (f *fixture) userService() UserService {
	return NewUserService(f.users, f.passwords, f.issuer, f.logger)
}

func (f *fixture) eventService() EventService {
	return NewEventService(f.events, f.registrations, f.logger)
}
