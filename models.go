package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MembershipStatus is the association status of a member
type MembershipStatus string

const (
	// MembershipPending account created, dues not confirmed
	MembershipPending MembershipStatus = "PENDING"
	// MembershipActive full member
	MembershipActive MembershipStatus = "ACTIVE"
	// MembershipExpired dues lapsed
	MembershipExpired MembershipStatus = "EXPIRED"
)

// User is the user model. Users are never deleted.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string           `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash     string           `bun:"password_hash,notnull" json:"-"`
	Role             UserRole         `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name             string           `bun:"name,notnull" json:"name,omitempty"`
	Phone            string           `bun:"phone_number" json:"phone_number,omitempty"`
	Bio              string           `bun:"bio" json:"bio,omitempty"`
	Course           string           `bun:"course" json:"course,omitempty"`
	Semester         string           `bun:"semester" json:"semester,omitempty"`
	DateOfBirth      string           `bun:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           string           `bun:"gender" json:"gender,omitempty"`
	Address          string           `bun:"address" json:"address,omitempty"`
	BloodGroup       string           `bun:"blood_group" json:"blood_group,omitempty"`
	EmergencyContact string           `bun:"emergency_contact" json:"emergency_contact,omitempty"`
	Avatar           string           `bun:"avatar" json:"avatar,omitempty"`
	MembershipStatus MembershipStatus `bun:"membership_status,notnull" json:"membership_status,omitempty"`
	Points           int              `bun:"points,notnull,default:0" json:"points"`
	Level            int              `bun:"level,notnull,default:1" json:"level"`
	CreatedAt        *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Profile returns the display attributes of the user
func (u *User) Profile() Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		Name:             u.Name,
		Phone:            u.Phone,
		Bio:              u.Bio,
		Course:           u.Course,
		Semester:         u.Semester,
		DateOfBirth:      u.DateOfBirth,
		Gender:           u.Gender,
		Address:          u.Address,
		BloodGroup:       u.BloodGroup,
		EmergencyContact: u.EmergencyContact,
		Avatar:           u.Avatar,
	}
}

func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleMember
	}
	if user.MembershipStatus == "" {
		user.MembershipStatus = MembershipPending
	}
	if user.Level == 0 {
		user.Level = 1
	}
}
