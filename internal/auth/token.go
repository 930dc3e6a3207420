package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when Config.TTL is zero.
const DefaultTokenTTL = 900 * time.Second

// Config is the immutable signing configuration shared by the issuer and the
// authenticator. Now defaults to time.Now.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (c Config) normalize() (Config, error) {
	if len(c.Secret) == 0 {
		return Config{}, errors.New("token signing secret is required")
	}
	if c.TTL < 0 {
		return Config{}, fmt.Errorf("token ttl must be positive, got %s", c.TTL)
	}
	if c.TTL == 0 {
		c.TTL = DefaultTokenTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	secret := make([]byte, len(c.Secret))
	copy(secret, c.Secret)
	c.Secret = secret
	return c, nil
}

// Issuer mints signed, time-limited bearer tokens.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) (*Issuer, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

// TTL is the lifetime given to every issued token.
func (i *Issuer) TTL() time.Duration {
	return i.cfg.TTL
}

// Issue signs a token whose subject is userID and which expires TTL from now.
func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := i.cfg.Now()
	expiresAt := now.Add(i.cfg.TTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
