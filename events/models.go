package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Registration is a member's registration to an event. The (event_id,
// user_id) pair is unique at the table level.
type Registration struct {
	bun.BaseModel `bun:"table:event_registrations,alias:reg"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	EventID       uuid.UUID `bun:"event_id,notnull,type:uuid,unique:uq_event_user" json:"eventId"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid,unique:uq_event_user" json:"userId"`
	FullName      string    `bun:"full_name,notnull" json:"fullName"`
	Phone         string    `bun:"phone,notnull" json:"phone"`
	Message       string    `bun:"message" json:"message,omitempty"`
	Attended      bool      `bun:"attended,notnull,default:false" json:"attended"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
