package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Student is created once per successful submission. Email is not unique
// across the table; uniqueness is per (event, email) on Registration.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Email       string    `bun:"email,notnull" json:"email"`
	PhoneNo     string    `bun:"phone_no,notnull" json:"phoneNo"`
	CollegeName string    `bun:"college_name,notnull" json:"collegeName"`
	Year        string    `bun:"year,notnull" json:"year"`
	EventID     string    `bun:"event_id,notnull" json:"eventId"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
