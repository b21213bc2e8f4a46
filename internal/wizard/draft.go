package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"techsymposium/internal/registration"
)

type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Draft is one visitor's progress through the form. Data entered on an
// earlier step survives going back.
type Draft struct {
	ID               string                    `json:"id"`
	Step             Step                      `json:"step"`
	Personal         registration.PersonalInfo `json:"personal"`
	ParticipantCount int                       `json:"participantCount"`
	TotalFee         int64                     `json:"totalFee"`
	PaymentImage     string                    `json:"paymentImage,omitempty"`
	PaymentMethod    string                    `json:"paymentMethod,omitempty"`
	PaymentID        string                    `json:"paymentId,omitempty"`
	Result           *registration.Result      `json:"result,omitempty"`
	LastError        string                    `json:"lastError,omitempty"`
	FieldErrors      map[string][]string       `json:"fieldErrors,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

func (d *Draft) clearErrors() {
	d.LastError = ""
	d.FieldErrors = nil
}

func (d *Draft) fail(err error) {
	d.LastError = publicMessage(err)
	d.FieldErrors = nil
	var ve *registration.ValidationError
	if errors.As(err, &ve) {
		d.FieldErrors = ve.Fields
	}
}

type DraftStore interface {
	Load(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
}

const draftKeyPrefix = "wizard:draft:"

// RedisDraftStore keeps drafts as JSON with a sliding TTL.
type RedisDraftStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{Client: client, TTL: ttl}
}

func (s *RedisDraftStore) Load(ctx context.Context, id string) (*Draft, error) {
	raw, err := s.Client.Get(ctx, draftKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	if err := s.Client.Set(ctx, draftKeyPrefix+d.ID, raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}
