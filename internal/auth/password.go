package auth

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordCost is the lowest bcrypt cost accepted for new hashes.
	MinPasswordCost = 10
	// DefaultPasswordCost is used when no cost is configured.
	DefaultPasswordCost = 11
)

// Passwords hashes and verifies user passwords with bcrypt.
type Passwords struct {
	cost   int
	logger logrus.FieldLogger
}

func NewPasswords(cost int, logger logrus.FieldLogger) (*Passwords, error) {
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	if cost < MinPasswordCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", MinPasswordCost, bcrypt.MaxCost, cost)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Passwords{cost: cost, logger: logger}, nil
}

// Hash returns a salted bcrypt hash of plaintext.
func (p *Passwords) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. It fails closed: a
// malformed hash or any other bcrypt failure is logged and reported as a mismatch.
func (p *Passwords) Verify(plaintext, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		p.logger.WithError(err).Warn("password hash comparison failed")
	}
	return false
}
