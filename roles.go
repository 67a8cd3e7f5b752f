package auth

import "strings"

// UserRole is the user's role
type UserRole string

const (
	// RoleAnonymous is the state of a request without a session
	RoleAnonymous UserRole = "ANONYMOUS"
	// RoleMember is a regular member (i.e. register to events, edit profile)
	RoleMember UserRole = "MEMBER"
	// RoleAdmin can manage registrations and attendance
	RoleAdmin UserRole = "ADMIN"
	// RoleSuperAdmin can do everything an admin can
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleHierarchy = map[UserRole]int{
	RoleAnonymous:  0,
	RoleMember:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Level returns the position of the role in the hierarchy, -1 if unknown
func (r UserRole) Level() int {
	level, ok := roleHierarchy[r]
	if !ok {
		return -1
	}
	return level
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level.
// Unknown roles on either side are never at least anything.
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	current := r.Level()
	if current < 0 {
		return false
	}

	min := minRole.Level()
	if min < 0 {
		return false
	}

	return current >= min
}

func (r UserRole) String() string {
	return string(r)
}

// GetAllRoles returns all assignable roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleMember,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(roleStr)))
	if role == RoleAnonymous {
		return role, false
	}
	return role, role.IsValid()
}
