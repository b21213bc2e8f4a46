package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"techsymposium/internal/logger"
	"techsymposium/internal/metrics"
	"techsymposium/internal/models"
	"techsymposium/internal/registration/db"
)

const defaultLockTTL = 30 * time.Second

type Store interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	IsRegistered(ctx context.Context, email, eventID string) (bool, error)
	CreateRegistration(ctx context.Context, rec *db.Record) error
}

type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type Publisher interface {
	PublishRegistrationCreated(ctx context.Context, evt models.RegistrationCreatedEvent) error
}

// Result is what a successful submission created.
type Result struct {
	Student      models.Student      `json:"student"`
	Registration models.Registration `json:"registration"`
	Payment      models.Payment      `json:"payment"`
	TeamMembers  []models.TeamMember `json:"teamMembers,omitempty"`
}

// Service is the registration write path. Locker, Publisher and Metrics
// are optional.
type Service struct {
	Store     Store
	Validator *Validator
	Fees      FeeCalculator
	Locker    Locker
	Publisher Publisher
	Metrics   *metrics.Collector
	Logger    *logger.Logger
	LockTTL   time.Duration
	now       func() time.Time
}

func NewService(store Store, validator *Validator, fees FeeCalculator, log *logger.Logger) *Service {
	return &Service{
		Store:     store,
		Validator: validator,
		Fees:      fees,
		Logger:    log,
		LockTTL:   defaultLockTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit parses an untyped body and registers it.
func (s *Service) Submit(ctx context.Context, body io.Reader) (*Result, error) {
	req, err := s.Validator.Parse(body)
	if err != nil {
		s.Metrics.ObserveRegistration("invalid", 0)
		return nil, err
	}
	return s.Register(ctx, req)
}

// Register persists a validated request. The stored amount always comes
// from the fee calculator.
func (s *Service) Register(ctx context.Context, req *models.RegistrationRequest) (res *Result, err error) {
	start := time.Now()
	defer func() {
		s.Metrics.ObserveRegistration(outcome(err), time.Since(start))
	}()

	event, err := s.Store.GetEventByID(ctx, req.EventID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", req.EventID, err)
	}

	release, err := s.acquire(ctx, event.ID, req.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := s.Store.IsRegistered(ctx, req.Email, event.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if exists {
		s.Logger.LogRegistration("DUPLICATE", event.ID, req.Email)
		return nil, ErrAlreadyRegistered
	}

	participants, total := s.Fees.Calculate(req.EventType, len(req.TeamMembers))
	if req.ClientFee != float64(total) {
		s.Logger.Warn("REGISTER", fmt.Sprintf("Client fee %.2f for %s differs from computed %d; using computed", req.ClientFee, req.Email, total))
	}

	rec := s.buildRecord(event, req, participants, total)
	if err := s.Store.CreateRegistration(ctx, rec); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.Logger.LogRegistration("CREATE", rec.Registration.ID,
		fmt.Sprintf("%s registered %s for %s (%d participants, %d)", req.Email, req.EventType, event.Title, participants, total))
	s.publish(ctx, event, rec)

	return &Result{
		Student:      *rec.Student,
		Registration: *rec.Registration,
		Payment:      *rec.Payment,
		TeamMembers:  rec.TeamMembers,
	}, nil
}

// acquire takes the per (event, email) submission lock. A lock backend
// failure is logged and the storage constraint remains the guard.
func (s *Service) acquire(ctx context.Context, eventID, email string) (func(), error) {
	noop := func() {}
	if s.Locker == nil {
		return noop, nil
	}

	key := fmt.Sprintf("registration:%s:%s", eventID, email)
	owner := uuid.NewString()
	ok, err := s.Locker.Acquire(ctx, key, owner, s.LockTTL)
	if err != nil {
		s.Logger.Warn("REGISTER", fmt.Sprintf("Submission lock unavailable, continuing: %v", err))
		return noop, nil
	}
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	return func() {
		if err := s.Locker.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			s.Logger.Warn("REGISTER", fmt.Sprintf("Failed to release submission lock %s: %v", key, err))
		}
	}, nil
}

func (s *Service) buildRecord(event *models.Event, req *models.RegistrationRequest, participants int, total int64) *db.Record {
	now := s.now()
	student := &models.Student{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		PhoneNo:     req.Phone,
		CollegeName: req.CollegeName,
		Year:        req.Year,
		EventID:     event.ID,
		CreatedAt:   now,
	}
	reg := &models.Registration{
		ID:               uuid.NewString(),
		StudentID:        student.ID,
		EventID:          event.ID,
		StudentEmail:     req.Email,
		RegistrationType: req.EventType,
		TotalAmount:      total,
		ParticipantCount: participants,
		CreatedAt:        now,
	}
	payment := &models.Payment{
		ID:             uuid.NewString(),
		StudentID:      student.ID,
		RegistrationID: reg.ID,
		Image:          req.PaymentImage,
		PaymentMethod:  req.PaymentMethod,
		PaymentID:      req.PaymentID,
		PaymentStatus:  models.PaymentStatusPaid,
		Amount:         total,
		CreatedAt:      now,
	}

	rec := &db.Record{Student: student, Registration: reg, Payment: payment}
	if req.EventType == models.RegistrationTypeGroup {
		for _, m := range req.TeamMembers {
			rec.TeamMembers = append(rec.TeamMembers, models.TeamMember{
				ID:             uuid.NewString(),
				Name:           m.Name,
				Email:          m.Email,
				TeamLeaderID:   student.ID,
				RegistrationID: reg.ID,
				CreatedAt:      now,
			})
		}
	}
	return rec
}

// publish is best effort: the registration has already committed.
func (s *Service) publish(ctx context.Context, event *models.Event, rec *db.Record) {
	if s.Publisher == nil {
		return
	}
	evt := models.NewRegistrationCreatedEvent(event, rec.Student, rec.Registration, rec.TeamMembers)
	if err := s.Publisher.PublishRegistrationCreated(ctx, evt); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish registration %s: %v", rec.Registration.ID, err))
	}
}

func outcome(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "created"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, ErrSubmissionInProgress):
		return "in_progress"
	default:
		return "error"
	}
}
