package query

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"techsymposium/internal/models"
)

// NotAvailable fills text columns for students with no registration or payment.
const NotAvailable = "N/A"

// FeaturedLimit is how many events the landing page features.
const FeaturedLimit = 3

var ErrEventNotFound = errors.New("event not found")

// Service builds the read views used by the event pages and the admin dashboard.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// StudentView is one denormalized dashboard row.
type StudentView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PhoneNo          string    `json:"phoneNo"`
	CollegeName      string    `json:"collegeName"`
	EventID          string    `json:"eventId"`
	EventTitle       string    `json:"events"`
	RegistrationID   string    `json:"registrationId,omitempty"`
	RegistrationType string    `json:"registrationType"`
	TeamMembers      []string  `json:"teamMembers"`
	ParticipantCount int       `json:"participantCount"`
	TotalAmount      int64     `json:"totalAmount"`
	IsPaid           bool      `json:"isPaid"`
	PaymentMethod    string    `json:"paymentMethod"`
	PaymentImage     string    `json:"paymentImage"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// EventSummary is an event with its registration counts.
type EventSummary struct {
	models.Event
	Registrations int `json:"registrations"`
	Participants  int `json:"participants"`
}

type eventCount struct {
	EventID       string `bun:"event_id"`
	Registrations int    `bun:"registrations"`
	Participants  int    `bun:"participants"`
}

// ListStudents returns one view per student, newest first. Lookups are
// batched per table, so missing registrations or payments only leave
// defaults behind.
func (s *Service) ListStudents(ctx context.Context) ([]StudentView, error) {
	var students []models.Student
	if err := s.db.NewSelect().
		Model(&students).
		Order("s.created_at DESC").
		Scan(ctx); err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return []StudentView{}, nil
	}

	studentIDs := make([]string, len(students))
	eventIDs := make([]string, 0, len(students))
	for i, st := range students {
		studentIDs[i] = st.ID
		if st.EventID != "" {
			eventIDs = append(eventIDs, st.EventID)
		}
	}

	var registrations []models.Registration
	if err := s.db.NewSelect().
		Model(&registrations).
		Where("r.student_id IN (?)", bun.In(studentIDs)).
		Order("r.created_at ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	regByStudent := make(map[string]models.Registration, len(registrations))
	regIDs := make([]string, 0, len(registrations))
	for _, reg := range registrations {
		if _, ok := regByStudent[reg.StudentID]; ok {
			continue
		}
		regByStudent[reg.StudentID] = reg
		regIDs = append(regIDs, reg.ID)
		eventIDs = append(eventIDs, reg.EventID)
	}

	var payments []models.Payment
	if err := s.db.NewSelect().
		Model(&payments).
		Where("p.student_id IN (?)", bun.In(studentIDs)).
		Order("p.created_at ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	paymentsByStudent := make(map[string][]models.Payment)
	for _, p := range payments {
		paymentsByStudent[p.StudentID] = append(paymentsByStudent[p.StudentID], p)
	}

	membersByReg := make(map[string][]string)
	if len(regIDs) > 0 {
		var members []models.TeamMember
		if err := s.db.NewSelect().
			Model(&members).
			Where("tm.registration_id IN (?)", bun.In(regIDs)).
			Order("tm.created_at ASC").
			Scan(ctx); err != nil {
			return nil, err
		}
		for _, m := range members {
			membersByReg[m.RegistrationID] = append(membersByReg[m.RegistrationID], m.Name)
		}
	}

	titles, err := s.eventTitles(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	views := make([]StudentView, len(students))
	for i, st := range students {
		views[i] = buildView(st, regByStudent, paymentsByStudent[st.ID], membersByReg, titles)
	}
	return views, nil
}

func buildView(st models.Student, regs map[string]models.Registration, payments []models.Payment, members map[string][]string, titles map[string]string) StudentView {
	view := StudentView{
		ID:               st.ID,
		Name:             st.Name,
		Email:            st.Email,
		PhoneNo:          st.PhoneNo,
		CollegeName:      st.CollegeName,
		EventID:          st.EventID,
		EventTitle:       NotAvailable,
		RegistrationType: NotAvailable,
		TeamMembers:      []string{},
		PaymentMethod:    NotAvailable,
		RegistrationDate: st.CreatedAt,
	}

	if reg, ok := regs[st.ID]; ok {
		view.RegistrationID = reg.ID
		view.RegistrationType = reg.RegistrationType
		view.ParticipantCount = reg.ParticipantCount
		if view.EventID == "" {
			view.EventID = reg.EventID
		}
		if names := members[reg.ID]; len(names) > 0 {
			view.TeamMembers = names
		}
	}
	if title, ok := titles[view.EventID]; ok {
		view.EventTitle = title
	}

	for _, p := range payments {
		view.TotalAmount += p.Amount
		if p.PaymentStatus == models.PaymentStatusPaid {
			view.IsPaid = true
		}
	}
	if len(payments) > 0 {
		view.PaymentMethod = payments[0].PaymentMethod
		view.PaymentImage = payments[0].Image
	}
	return view
}

func (s *Service) eventTitles(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string)
	if len(ids) == 0 {
		return titles, nil
	}
	var events []models.Event
	if err := s.db.NewSelect().
		Model(&events).
		Column("e.id", "e.title").
		Where("e.id IN (?)", bun.In(ids)).
		Scan(ctx); err != nil {
		return nil, err
	}
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	return titles, nil
}

// ListEvents returns every event with its counts, ordered by id.
func (s *Service) ListEvents(ctx context.Context) ([]EventSummary, error) {
	return s.listEvents(ctx, 0)
}

// ListFeatured returns the first FeaturedLimit events.
func (s *Service) ListFeatured(ctx context.Context) ([]EventSummary, error) {
	return s.listEvents(ctx, FeaturedLimit)
}

func (s *Service) listEvents(ctx context.Context, limit int) ([]EventSummary, error) {
	var events []models.Event
	q := s.db.NewSelect().
		Model(&events).
		Order("e.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []EventSummary{}, nil
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := s.countRegistrations(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]EventSummary, len(events))
	for i, e := range events {
		c := counts[e.ID]
		out[i] = EventSummary{Event: e, Registrations: c.Registrations, Participants: c.Participants}
	}
	return out, nil
}

// GetEvent returns one event with its counts.
func (s *Service) GetEvent(ctx context.Context, id string) (*EventSummary, error) {
	var event models.Event
	err := s.db.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	counts, err := s.countRegistrations(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	c := counts[id]
	return &EventSummary{Event: event, Registrations: c.Registrations, Participants: c.Participants}, nil
}

func (s *Service) countRegistrations(ctx context.Context, eventIDs []string) (map[string]eventCount, error) {
	var rows []eventCount
	err := s.db.NewSelect().
		Model((*models.Registration)(nil)).
		ColumnExpr("r.event_id AS event_id").
		ColumnExpr("COUNT(*) AS registrations").
		ColumnExpr("COALESCE(SUM(r.participant_count), 0) AS participants").
		Where("r.event_id IN (?)", bun.In(eventIDs)).
		Group("r.event_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]eventCount, len(rows))
	for _, row := range rows {
		out[row.EventID] = row
	}
	return out, nil
}
