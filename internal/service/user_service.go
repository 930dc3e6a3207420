package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-registry/internal/auth"
	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt ignores the rest
	maxUsernameLength = 64
)

// Session is the result of a successful login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, name string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	EnsureAdmin(ctx context.Context, username, password, name string) (bool, error)
}

type userService struct {
	users     repository.UserRepository
	passwords *auth.Passwords
	tokens    *auth.Issuer
	logger    logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, passwords *auth.Passwords, tokens *auth.Issuer, logger logrus.FieldLogger) UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &userService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

func (s *userService) Register(ctx context.Context, username, password, name string) (*domain.User, error) {
	user, err := s.newUser(username, password, name, false)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *userService) newUser(username, password, name string, admin bool) (*domain.User, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be at most %d characters", ErrInvalidInput, maxUsernameLength)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	if name == "" {
		name = username
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Admin:        admin,
	}, nil
}

// Login verifies credentials and issues a bearer token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.Verify(password, s.timingHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:      sanitizeUser(user),
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: s.tokens.TTL(),
	}, nil
}

// timingHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
func (s *userService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.Hash(uuid.NewString())
		if err != nil {
			s.logger.WithError(err).Warn("create timing hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *userService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = *sanitizeUser(&users[i])
	}
	return out, nil
}

// EnsureAdmin creates an administrator when none exists yet. An empty password
// is replaced with a generated one which is logged once.
func (s *userService) EnsureAdmin(ctx context.Context, username, password, name string) (bool, error) {
	has, err := s.users.HasAdmin(ctx)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}

	generated := false
	if password == "" {
		password, err = generatePassword(24)
		if err != nil {
			return false, err
		}
		generated = true
	}

	user, err := s.newUser(username, password, name, true)
	if err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	entry := s.logger.WithField("username", user.Username)
	if generated {
		entry = entry.WithField("password", password)
	}
	entry.Warn("initial admin created")
	return true, nil
}

func generatePassword(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Admin:     user.Admin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
