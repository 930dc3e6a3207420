package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

// UserLookup resolves token subjects. Implementations return an error wrapping
// repository.ErrNotFound when the user does not exist.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator exchanges bearer tokens for users. It is the only place where
// tokens are verified.
type Authenticator struct {
	cfg    Config
	users  UserLookup
	logger logrus.FieldLogger
}

func NewAuthenticator(cfg Config, users UserLookup, logger logrus.FieldLogger) (*Authenticator, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if users == nil {
		return nil, errors.New("user lookup is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Authenticator{cfg: cfg, users: users, logger: logger}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate validates the bearer token in header and resolves its subject.
// The lookup honours ctx; cancellation surfaces as ErrUpstreamLookup.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*domain.User, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}

	subject, err := a.verify(raw)
	if err != nil {
		return nil, err
	}

	user, err := a.users.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		a.logger.WithError(err).WithField("subject", subject).Error("resolve token subject")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamLookup, err)
	}
	if user == nil {
		return nil, ErrUnknownSubject
	}
	return user, nil
}

// verify checks signature then expiry and returns the subject.
func (a *Authenticator) verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return a.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.cfg.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidSignature)
	}
	return claims.Subject, nil
}
