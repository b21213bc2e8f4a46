package models

import (
	"time"
)

// RegistrationCreatedEvent is published to Kafka after a registration commits.
type RegistrationCreatedEvent struct {
	RegistrationID   string            `json:"registration_id"`
	StudentID        string            `json:"student_id"`
	EventID          string            `json:"event_id"`
	EventTitle       string            `json:"event_title"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	RegistrationType string            `json:"registration_type"`
	ParticipantCount int               `json:"participant_count"`
	TotalAmount      int64             `json:"total_amount"`
	TeamMembers      []TeamMemberInput `json:"team_members,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func NewRegistrationCreatedEvent(event *Event, student *Student, reg *Registration, members []TeamMember) RegistrationCreatedEvent {
	out := RegistrationCreatedEvent{
		RegistrationID:   reg.ID,
		StudentID:        student.ID,
		EventID:          event.ID,
		EventTitle:       event.Title,
		Name:             student.Name,
		Email:            student.Email,
		RegistrationType: reg.RegistrationType,
		ParticipantCount: reg.ParticipantCount,
		TotalAmount:      reg.TotalAmount,
		CreatedAt:        reg.CreatedAt,
	}
	for _, m := range members {
		out.TeamMembers = append(out.TeamMembers, TeamMemberInput{Name: m.Name, Email: m.Email})
	}
	return out
}
