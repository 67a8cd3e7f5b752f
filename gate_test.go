package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-member-auth"
	"github.com/stretchr/testify/assert"
)

func TestUserRoleIsAtLeast(t *testing.T) {
	roles := []auth.UserRole{auth.RoleAnonymous, auth.RoleMember, auth.RoleAdmin, auth.RoleSuperAdmin}

	for i, role := range roles {
		for j, min := range roles {
			assert.Equal(t, i >= j, role.IsAtLeast(min), "%s >= %s", role, min)
		}
	}

	unknown := auth.UserRole("OWNER")
	for _, min := range roles {
		assert.False(t, unknown.IsAtLeast(min))
	}
	assert.False(t, auth.RoleSuperAdmin.IsAtLeast(unknown))
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole(" admin ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	_, ok = auth.ParseRole("anonymous")
	assert.False(t, ok)

	_, ok = auth.ParseRole("owner")
	assert.False(t, ok)

	assert.Equal(t, []auth.UserRole{auth.RoleMember, auth.RoleAdmin, auth.RoleSuperAdmin}, auth.GetAllRoles())
}

func TestGateAuthorize(t *testing.T) {
	gate := auth.NewGate(auth.NoopLogger{})

	member := &auth.Session{Role: auth.RoleMember}
	admin := &auth.Session{Role: auth.RoleAdmin}
	super := &auth.Session{Role: auth.RoleSuperAdmin}
	bogus := &auth.Session{Role: auth.UserRole("ROOT")}

	tests := []struct {
		name    string
		session *auth.Session
		min     auth.UserRole
		allowed bool
	}{
		{"anonymous on public", nil, auth.RoleAnonymous, true},
		{"anonymous on member", nil, auth.RoleMember, false},
		{"anonymous on admin", nil, auth.RoleAdmin, false},
		{"member on member", member, auth.RoleMember, true},
		{"member on admin", member, auth.RoleAdmin, false},
		{"admin on admin", admin, auth.RoleAdmin, true},
		{"admin on super admin", admin, auth.RoleSuperAdmin, false},
		{"super admin on admin", super, auth.RoleAdmin, true},
		{"unknown role on member", bogus, auth.RoleMember, false},
		{"unknown role on public", bogus, auth.RoleAnonymous, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.session, tt.min)
			assert.Equal(t, tt.allowed, gate.Allowed(tt.session, tt.min))
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, auth.ErrAccessDenied)
			assert.Equal(t, 401, auth.HTTPStatus(err))
		})
	}
}

func TestGateDenialIsUniform(t *testing.T) {
	gate := auth.NewGate(nil)

	anonymous := gate.Authorize(nil, auth.RoleAdmin)
	lowRole := gate.Authorize(&auth.Session{Role: auth.RoleMember}, auth.RoleAdmin)

	assert.Equal(t, anonymous, lowRole)
	assert.Equal(t, auth.ErrorDetailFor(anonymous), auth.ErrorDetailFor(lowRole))
}
