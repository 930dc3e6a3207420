package auth

import (
	"fmt"

	"event-registry/internal/domain"
)

type requirementKind int

const (
	requireAny requirementKind = iota + 1
	requireSelf
	requireAdmin
)

// Requirement is what a route demands of an authenticated user.
type Requirement struct {
	kind   requirementKind
	target string
}

// Any admits every authenticated user.
func Any() Requirement { return Requirement{kind: requireAny} }

// SelfOnly admits only the user whose id is userID.
func SelfOnly(userID string) Requirement { return Requirement{kind: requireSelf, target: userID} }

// AdminOnly admits only administrators.
func AdminOnly() Requirement { return Requirement{kind: requireAdmin} }

func (r Requirement) String() string {
	switch r.kind {
	case requireAny:
		return "any"
	case requireSelf:
		return fmt.Sprintf("self(%s)", r.target)
	case requireAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

// Allowed reports whether user satisfies req. A nil user never does, and the
// zero Requirement admits nobody.
func Allowed(user *domain.User, req Requirement) bool {
	if user == nil {
		return false
	}
	switch req.kind {
	case requireAny:
		return true
	case requireSelf:
		return user.ID != "" && user.ID == req.target
	case requireAdmin:
		return user.Admin
	default:
		return false
	}
}

// Authorize returns ErrForbidden unless user satisfies req.
func Authorize(user *domain.User, req Requirement) error {
	if !Allowed(user, req) {
		return ErrForbidden
	}
	return nil
}
