package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session is the read-only view of verified claims for one request.
// Handlers receive it explicitly, nil means anonymous.
type Session struct {
	UserID           string           `json:"user_id"`
	Email            string           `json:"email"`
	Role             UserRole         `json:"role"`
	Profile          Profile          `json:"profile"`
	MembershipStatus MembershipStatus `json:"membership_status,omitempty"`
	Points           int              `json:"points"`
	Level            int              `json:"level"`
	Issuer           string           `json:"issuer,omitempty"`
	Audience         []string         `json:"audience,omitempty"`
	TokenID          string           `json:"token_id,omitempty"`
	IssuedAt         *time.Time       `json:"issued_at,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`

	claims *JWTClaims
}

// NewSessionFromClaims projects claims into a session
func NewSessionFromClaims(claims *JWTClaims) *Session {
	if claims == nil {
		return nil
	}

	s := &Session{
		UserID:           claims.UserID(),
		Email:            claims.Email,
		Role:             claims.UserRole,
		Profile:          claims.Profile,
		MembershipStatus: claims.MembershipStatus,
		Points:           claims.Points,
		Level:            claims.Level,
		Issuer:           claims.Issuer,
		TokenID:          claims.ID,
		claims:           claims.clone(),
	}

	if len(claims.Audience) > 0 {
		s.Audience = append([]string{}, claims.Audience...)
	}

	if t := claims.IssuedAt(); !t.IsZero() {
		s.IssuedAt = &t
	}

	if t := claims.Expires(); !t.IsZero() {
		s.ExpiresAt = &t
	}

	return s
}

// GetUserUUID parses the session user id
func (s *Session) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

// HasRole checks the session role against a specific role
func (s *Session) HasRole(role UserRole) bool {
	return s != nil && s.Role == role
}

// IsAtLeast checks if the session role meets the minimum
func (s *Session) IsAtLeast(minRole UserRole) bool {
	return s.role().IsAtLeast(minRole)
}

// Claims returns a copy of the claims the session was built from
func (s *Session) Claims() *JWTClaims {
	if s == nil || s.claims == nil {
		return nil
	}
	return s.claims.clone()
}

func (s *Session) role() UserRole {
	if s == nil {
		return RoleAnonymous
	}
	return s.Role
}
