package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RegistrationTypeIndividual = "individual"
	RegistrationTypeGroup      = "group"
)

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID               string    `bun:"id,pk" json:"id"`
	StudentID        string    `bun:"student_id,notnull" json:"studentId"`
	EventID          string    `bun:"event_id,notnull,unique:registrations_event_email" json:"eventId"`
	StudentEmail     string    `bun:"student_email,notnull,unique:registrations_event_email" json:"studentEmail"`
	RegistrationType string    `bun:"registration_type,notnull" json:"registrationType"`
	TotalAmount      int64     `bun:"total_amount,notnull" json:"totalAmount"`
	ParticipantCount int       `bun:"participant_count,notnull" json:"participantCount"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// TeamMember belongs to a group Registration. StudentMemberID is set when
// a Student row with the same email existed at registration time.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	Email           string    `bun:"email,notnull" json:"email"`
	TeamLeaderID    string    `bun:"team_leader_id,notnull" json:"teamLeaderId"`
	RegistrationID  string    `bun:"registration_id,notnull" json:"registrationId"`
	StudentMemberID string    `bun:"student_member_id,nullzero" json:"studentMemberId,omitempty"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
