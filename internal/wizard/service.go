package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"techsymposium/internal/imagestore"
	"techsymposium/internal/logger"
	"techsymposium/internal/metrics"
	"techsymposium/internal/models"
	"techsymposium/internal/registration"
	"techsymposium/internal/registration/db"
)

const defaultLockTTL = 2 * time.Minute

var (
	ErrDraftNotFound      = errors.New("wizard draft not found")
	ErrInvalidTransition  = errors.New("action is not allowed in the current step")
	ErrSubmissionInFlight = errors.New("another action on this draft is in progress")
)

type Registrar interface {
	Register(ctx context.Context, req *models.RegistrationRequest) (*registration.Result, error)
}

type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type EventLookup interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// PaymentSubmission is the step-two form: the proof file plus its reference.
type PaymentSubmission struct {
	Filename      string
	File          io.Reader
	PaymentID     string
	PaymentMethod string
}

// Service drives drafts through personal info, payment and confirmation.
// Every transition holds a per-draft lock, so one step runs at a time.
type Service struct {
	Drafts    DraftStore
	Validator *registration.Validator
	Fees      registration.FeeCalculator
	Registrar Registrar
	Uploader  Uploader
	Events    EventLookup
	Locker    registration.Locker
	Metrics   *metrics.Collector
	Logger    *logger.Logger
	LockTTL   time.Duration
	now       func() time.Time
}

func NewService(drafts DraftStore, validator *registration.Validator, fees registration.FeeCalculator,
	registrar Registrar, uploader Uploader, locker registration.Locker, log *logger.Logger) *Service {
	return &Service{
		Drafts:    drafts,
		Validator: validator,
		Fees:      fees,
		Registrar: registrar,
		Uploader:  uploader,
		Locker:    locker,
		Logger:    log,
		LockTTL:   defaultLockTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Start(ctx context.Context) (*Draft, error) {
	now := s.now()
	d := &Draft{
		ID:        uuid.NewString(),
		Step:      StepPersonalInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	s.Metrics.ObserveWizard("start", "ok")
	s.Logger.LogWizard("START", d.ID, "new draft")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Draft, error) {
	return s.Drafts.Load(ctx, id)
}

// SubmitPersonal stores step-one data and advances to payment when it is
// valid. Invalid data is kept on the draft together with the field errors.
func (s *Service) SubmitPersonal(ctx context.Context, id string, info registration.PersonalInfo) (*Draft, error) {
	return s.transition(ctx, "personal", id, func(d *Draft) error {
		if d.Step != StepPersonalInfo {
			return ErrInvalidTransition
		}

		normalized, err := s.Validator.ValidatePersonal(info)
		d.Personal = normalized
		if err != nil {
			return err
		}
		if s.Events != nil {
			if _, err := s.Events.GetEventByID(ctx, normalized.Event); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return registration.ErrEventNotFound
				}
				return fmt.Errorf("load event %s: %w", normalized.Event, err)
			}
		}

		d.ParticipantCount, d.TotalFee = s.Fees.Calculate(eventType(normalized), len(normalized.TeamMembers))
		d.Step = StepPayment
		return nil
	})
}

// Back returns from payment to personal info without touching entered data.
func (s *Service) Back(ctx context.Context, id string) (*Draft, error) {
	return s.transition(ctx, "back", id, func(d *Draft) error {
		if d.Step != StepPayment {
			return ErrInvalidTransition
		}
		d.Step = StepPersonalInfo
		return nil
	})
}

// SubmitPayment uploads the proof, then registers. The draft moves to
// confirmation only when the registration committed.
func (s *Service) SubmitPayment(ctx context.Context, id string, sub PaymentSubmission) (*Draft, error) {
	return s.transition(ctx, "payment", id, func(d *Draft) error {
		if d.Step != StepPayment {
			return ErrInvalidTransition
		}
		d.PaymentID = strings.TrimSpace(sub.PaymentID)
		d.PaymentMethod = strings.TrimSpace(sub.PaymentMethod)

		if sub.File == nil {
			return registration.NewValidationError("paymentImage", "is required")
		}
		url, err := s.Uploader.Upload(ctx, sub.Filename, sub.File)
		if err != nil {
			return err
		}
		d.PaymentImage = url

		fee := float64(d.TotalFee)
		payload := registration.Payload{
			PersonalInfo: d.Personal,
			PaymentInfo: registration.PaymentInfo{
				PaymentImage:  url,
				PaymentMethod: &d.PaymentMethod,
				PaymentID:     d.PaymentID,
				TotalFee:      &fee,
			},
		}
		req, err := s.Validator.Validate(payload)
		if err != nil {
			return err
		}

		res, err := s.Registrar.Register(ctx, req)
		if err != nil {
			return err
		}
		d.Result = res
		d.Step = StepConfirmation
		return nil
	})
}

// Restart leaves the confirmation screen with an empty form.
func (s *Service) Restart(ctx context.Context, id string) (*Draft, error) {
	return s.transition(ctx, "restart", id, func(d *Draft) error {
		if d.Step != StepConfirmation {
			return ErrInvalidTransition
		}
		*d = Draft{ID: d.ID, Step: StepPersonalInfo, CreatedAt: d.CreatedAt}
		return nil
	})
}

// transition runs apply under the draft lock. Domain failures are recorded
// on the draft, which is saved either way; an invalid transition leaves it
// untouched.
func (s *Service) transition(ctx context.Context, action, id string, apply func(*Draft) error) (*Draft, error) {
	release, err := s.lock(ctx, id)
	if err != nil {
		s.Metrics.ObserveWizard(action, "in_flight")
		return nil, err
	}
	defer release()

	d, err := s.Drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := d.Step
	applyErr := apply(d)
	if errors.Is(applyErr, ErrInvalidTransition) {
		s.Metrics.ObserveWizard(action, "invalid_transition")
		s.Logger.LogWizard(strings.ToUpper(action), id, fmt.Sprintf("rejected in %s", from))
		return d, applyErr
	}

	if applyErr != nil {
		d.fail(applyErr)
	} else {
		d.clearErrors()
	}
	d.UpdatedAt = s.now()
	if err := s.Drafts.Save(context.WithoutCancel(ctx), d); err != nil {
		return nil, err
	}

	if applyErr != nil {
		s.Metrics.ObserveWizard(action, "failed")
		s.Logger.LogWizard(strings.ToUpper(action), id, fmt.Sprintf("stayed in %s: %v", d.Step, applyErr))
		return d, applyErr
	}
	s.Metrics.ObserveWizard(action, "ok")
	s.Logger.LogWizard(strings.ToUpper(action), id, fmt.Sprintf("%s -> %s", from, d.Step))
	return d, nil
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	key := "wizard:" + id
	owner := uuid.NewString()
	ok, err := s.Locker.Acquire(ctx, key, owner, s.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}
	return func() {
		if err := s.Locker.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			s.Logger.Warn("WIZARD", fmt.Sprintf("Failed to release %s: %v", key, err))
		}
	}, nil
}

func eventType(info registration.PersonalInfo) string {
	if info.EventType == nil {
		return models.RegistrationTypeIndividual
	}
	return *info.EventType
}

// publicMessage is what the draft shows; internal details stay in the log.
func publicMessage(err error) string {
	var ve *registration.ValidationError
	switch {
	case errors.As(err, &ve):
		return "Please correct the highlighted fields."
	case errors.Is(err, registration.ErrEventNotFound),
		errors.Is(err, registration.ErrAlreadyRegistered),
		errors.Is(err, registration.ErrSubmissionInProgress):
		return err.Error()
	case errors.Is(err, imagestore.ErrNotImage), errors.Is(err, imagestore.ErrEmptyFile):
		return "The payment proof must be an image."
	case errors.Is(err, imagestore.ErrUploadFailed):
		return "The payment proof could not be uploaded. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
