package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"event-registry/internal/domain"
)

func TestAllowed_AdminOnly(t *testing.T) {
	users := []*domain.User{
		{ID: "a", Admin: true},
		{ID: "b", Admin: false},
		{ID: "", Admin: true},
		{ID: "c"},
	}
	for _, u := range users {
		assert.Equal(t, u.Admin, Allowed(u, AdminOnly()), "user %+v", u)
		if u.Admin {
			assert.NoError(t, Authorize(u, AdminOnly()))
		} else {
			assert.ErrorIs(t, Authorize(u, AdminOnly()), ErrForbidden)
		}
	}
}

func TestAllowed_SelfOnly(t *testing.T) {
	ids := []string{"u-1", "u-2", "does-not-exist", ""}
	users := []*domain.User{
		{ID: "u-1"},
		{ID: "u-2", Admin: true},
	}
	for _, u := range users {
		for _, target := range ids {
			want := u.ID == target
			assert.Equal(t, want, Allowed(u, SelfOnly(target)), "user %s target %q", u.ID, target)
		}
	}
}

func TestAllowed_AnyAndNil(t *testing.T) {
	assert.True(t, Allowed(&domain.User{ID: "x"}, Any()))

	for _, req := range []Requirement{Any(), SelfOnly(""), SelfOnly("x"), AdminOnly(), {}} {
		assert.False(t, Allowed(nil, req), req.String())
		assert.ErrorIs(t, Authorize(nil, req), ErrForbidden)
	}

	assert.False(t, Allowed(&domain.User{ID: "x", Admin: true}, Requirement{}), "zero requirement admits nobody")
}

func TestRequirement_String(t *testing.T) {
	assert.Equal(t, "any", Any().String())
	assert.Equal(t, "admin", AdminOnly().String())
	assert.Equal(t, "self(u-1)", SelfOnly("u-1").String())
	assert.Equal(t, "invalid", Requirement{}.String())
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserFromContext(WithUser(context.Background(), nil))
	assert.False(t, ok)

	user := &domain.User{ID: "u-1"}
	got, ok := UserFromContext(WithUser(context.Background(), user))
	assert.True(t, ok)
	assert.Same(t, user, got)
}
