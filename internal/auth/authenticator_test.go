package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-registry/internal/domain"
	"event-registry/internal/repository"
)

type fakeLookup struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (f *fakeLookup) FindByID(ctx context.Context, id string) (*domain.User, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return user, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestPair(t *testing.T, lookup UserLookup, secret string, ttl time.Duration, c *clock) (*Issuer, *Authenticator) {
	t.Helper()
	cfg := Config{Secret: []byte(secret), TTL: ttl, Now: c.Now}
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	authn, err := NewAuthenticator(cfg, lookup, logger)
	require.NoError(t, err)
	return iss, authn
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			token, ok := BearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestAuthenticate_Success(t *testing.T) {
	user := &domain.User{ID: "u-1", Username: "anna"}
	lookup := &fakeLookup{users: map[string]*domain.User{"u-1": user}}
	c := &clock{now: testEpoch}
	iss, authn := newTestPair(t, lookup, "secret", time.Minute, c)

	raw, _, err := iss.Issue("u-1")
	require.NoError(t, err)

	got, err := authn.Authenticate(context.Background(), "Bearer "+raw)
	require.NoError(t, err)
	assert.Same(t, user, got)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	lookup := &fakeLookup{}
	_, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	for _, header := range []string{"", "Basic Zm9vOmJhcg==", "Bearer "} {
		_, err := authn.Authenticate(context.Background(), header)
		assert.ErrorIs(t, err, ErrMissingToken, header)
	}
	assert.Zero(t, lookup.calls)
}

func TestAuthenticate_ExpiryBoundary(t *testing.T) {
	const ttl = 900 * time.Second
	lookup := &fakeLookup{users: map[string]*domain.User{"u-1": {ID: "u-1"}}}
	c := &clock{now: testEpoch}
	iss, authn := newTestPair(t, lookup, "secret", ttl, c)

	raw, _, err := iss.Issue("u-1")
	require.NoError(t, err)

	c.now = testEpoch.Add(ttl - time.Second)
	_, err = authn.Authenticate(context.Background(), "Bearer "+raw)
	assert.NoError(t, err)

	c.now = testEpoch.Add(ttl + time.Second)
	_, err = authn.Authenticate(context.Background(), "Bearer "+raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthenticate_ForeignSecret(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*domain.User{"u-1": {ID: "u-1", Admin: true}}}
	c := &clock{now: testEpoch}
	_, authn := newTestPair(t, lookup, "right", time.Minute, c)

	for _, ttl := range []time.Duration{time.Minute, time.Hour, -time.Minute} {
		foreign, err := NewIssuer(Config{Secret: []byte("wrong"), TTL: time.Hour, Now: fixedClock(testEpoch.Add(ttl - time.Hour))})
		require.NoError(t, err)
		raw, _, err := foreign.Issue("u-1")
		require.NoError(t, err)

		_, err = authn.Authenticate(context.Background(), "Bearer "+raw)
		assert.ErrorIs(t, err, ErrInvalidSignature, "ttl offset %s", ttl)
		assert.NotErrorIs(t, err, ErrExpiredToken)
	}
	assert.Zero(t, lookup.calls)
}

func TestAuthenticate_RejectsOtherAlgorithms(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*domain.User{"u-1": {ID: "u-1"}}}
	_, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	claims := jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour))}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "Bearer "+none)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "Bearer "+hs512)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAuthenticate_MalformedAndSubjectless(t *testing.T) {
	lookup := &fakeLookup{}
	_, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	_, err := authn.Authenticate(context.Background(), "Bearer not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "Bearer "+noSub)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "Bearer "+noExp)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*domain.User{}}
	iss, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	raw, _, err := iss.Issue("deleted-user")
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background(), "Bearer "+raw)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestAuthenticate_LookupFailure(t *testing.T) {
	cause := errors.New("connection refused")
	lookup := &fakeLookup{err: cause}
	iss, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	raw, _, err := iss.Issue("u-1")
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background(), "Bearer "+raw)
	assert.ErrorIs(t, err, ErrUpstreamLookup)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnknownSubject)
}

func TestAuthenticate_CancelledLookup(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*domain.User{"u-1": {ID: "u-1"}}}
	iss, authn := newTestPair(t, lookup, "secret", time.Minute, &clock{now: testEpoch})

	raw, _, err := iss.Issue("u-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = authn.Authenticate(ctx, "Bearer "+raw)
	assert.ErrorIs(t, err, ErrUpstreamLookup)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, lookup.calls, "no retries")
}

func TestNewAuthenticator_RequiresLookup(t *testing.T) {
	_, err := NewAuthenticator(Config{Secret: []byte("k")}, nil, nil)
	assert.Error(t, err)
	_, err = NewAuthenticator(Config{}, &fakeLookup{}, nil)
	assert.Error(t, err)
}
