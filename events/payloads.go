package events

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	auth "github.com/goliatone/go-member-auth"
	"github.com/google/uuid"
)

// RegisterInput is the registration request
type RegisterInput struct {
	EventID  string `json:"eventId" form:"eventId"`
	UserID   string `json:"userId" form:"userId"`
	FullName string `json:"fullName" form:"fullName"`
	Phone    string `json:"phone" form:"phone"`
	Message  string `json:"message" form:"message"`
}

func (r *RegisterInput) normalize() {
	r.EventID = strings.TrimSpace(r.EventID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Message = strings.TrimSpace(r.Message)
}

// Validate runs the field rules, phone numbers are checked for region
func (r RegisterInput) Validate(region string) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.EventID, validation.Required, is.UUID),
		validation.Field(&r.UserID, validation.Required, is.UUID),
		validation.Field(&r.FullName, validation.Required, validation.By(auth.RuneLength(2, 100))),
		validation.Field(&r.Phone, validation.Required, validation.By(auth.ValidPhone(region))),
		validation.Field(&r.Message, validation.By(auth.RuneLength(0, 500))),
	)
	if err != nil {
		return validationFailed(auth.FieldErrors(err))
	}
	return nil
}

// UpdateAttendanceInput sets the attended flag of a registration. Both
// fields are required, Attended is a pointer so false can be told apart
// from missing.
type UpdateAttendanceInput struct {
	ID       string `json:"id" form:"id"`
	Attended *bool  `json:"attended" form:"attended"`
}

func (u UpdateAttendanceInput) parse() (uuid.UUID, bool, error) {
	fields := map[string]string{}

	id, err := uuid.Parse(strings.TrimSpace(u.ID))
	if strings.TrimSpace(u.ID) == "" {
		fields["id"] = "cannot be blank"
	} else if err != nil {
		fields["id"] = "must be a valid UUID"
	}

	if u.Attended == nil {
		fields["attended"] = "cannot be blank"
	}

	if len(fields) > 0 {
		return uuid.Nil, false, badRequest(fields)
	}

	return id, *u.Attended, nil
}
