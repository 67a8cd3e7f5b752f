package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Profile is the display part of the claims. It mirrors the optional
// attributes of User.
type Profile struct {
	Name             string `json:"name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Bio              string `json:"bio,omitempty"`
	Course           string `json:"course,omitempty"`
	Semester         string `json:"semester,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	Gender           string `json:"gender,omitempty"`
	Address          string `json:"address,omitempty"`
	BloodGroup       string `json:"blood_group,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
}

// JWTClaims is the signed token payload. There is no password field
// here, a token can not carry a hash even by mistake.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID              string           `json:"uid,omitempty"`
	Email            string           `json:"email,omitempty"`
	UserRole         UserRole         `json:"role,omitempty"`
	Profile          Profile          `json:"profile"`
	MembershipStatus MembershipStatus `json:"membership_status,omitempty"`
	Points           int              `json:"points"`
	Level            int              `json:"level"`
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func (c *JWTClaims) clone() *JWTClaims {
	out := *c
	if len(c.Audience) > 0 {
		out.Audience = make(jwt.ClaimStrings, len(c.Audience))
		copy(out.Audience, c.Audience)
	}
	return &out
}

// PartialClaims is a profile update merged over existing claims on
// refresh. Nil fields are left untouched. Identity, role, membership and
// gamification values are not part of it.
type PartialClaims struct {
	Name             *string `json:"name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	Course           *string `json:"course,omitempty"`
	Semester         *string `json:"semester,omitempty"`
	DateOfBirth      *string `json:"date_of_birth,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	Address          *string `json:"address,omitempty"`
	BloodGroup       *string `json:"blood_group,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	Avatar           *string `json:"avatar,omitempty"`
}

// IsEmpty reports whether the update would change nothing
func (p PartialClaims) IsEmpty() bool {
	return p == PartialClaims{}
}

// Merge returns a copy of the profile with every set field replaced
func (p PartialClaims) Merge(profile Profile) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&profile.Name, p.Name)
	set(&profile.Phone, p.Phone)
	set(&profile.Bio, p.Bio)
	set(&profile.Course, p.Course)
	set(&profile.Semester, p.Semester)
	set(&profile.DateOfBirth, p.DateOfBirth)
	set(&profile.Gender, p.Gender)
	set(&profile.Address, p.Address)
	set(&profile.BloodGroup, p.BloodGroup)
	set(&profile.EmergencyContact, p.EmergencyContact)
	set(&profile.Avatar, p.Avatar)

	return profile
}

// Apply copies the set fields onto a user record, used to persist a
// profile update before the token is refreshed.
func (p PartialClaims) Apply(user *User) {
	if user == nil {
		return
	}
	profile := p.Merge(user.Profile())
	user.Name = profile.Name
	user.Phone = profile.Phone
	user.Bio = profile.Bio
	user.Course = profile.Course
	user.Semester = profile.Semester
	user.DateOfBirth = profile.DateOfBirth
	user.Gender = profile.Gender
	user.Address = profile.Address
	user.BloodGroup = profile.BloodGroup
	user.EmergencyContact = profile.EmergencyContact
	user.Avatar = profile.Avatar
}
