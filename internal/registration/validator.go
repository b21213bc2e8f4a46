package registration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"techsymposium/internal/models"
)

// DefaultYear and DefaultClientFee mirror the form defaults.
const (
	DefaultYear      = "1"
	DefaultClientFee = 100.0
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

type TeamMemberPayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// PersonalInfo is the first wizard step. Pointer fields are optional and
// receive defaults when absent.
type PersonalInfo struct {
	Name         string              `json:"name" validate:"required"`
	Phone        string              `json:"phone" validate:"required,phone"`
	CollegeName  string              `json:"collegeName" validate:"required"`
	Year         *string             `json:"year,omitempty"`
	AcademicYear *string             `json:"academicYear,omitempty"`
	Email        string              `json:"email" validate:"required,email"`
	Event        string              `json:"event" validate:"required"`
	EventType    *string             `json:"eventType,omitempty" validate:"omitempty,oneof=individual group"`
	TeamMembers  []TeamMemberPayload `json:"teamMembers,omitempty" validate:"dive"`
}

type PaymentInfo struct {
	PaymentImage  string   `json:"paymentImage" validate:"required,url"`
	PaymentMethod *string  `json:"paymentMethod,omitempty"`
	PaymentID     string   `json:"paymentId" validate:"required"`
	TotalFee      *float64 `json:"totalFee,omitempty" validate:"omitempty,gt=0"`
}

// Payload is the registration submission body.
type Payload struct {
	PersonalInfo
	PaymentInfo
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Parse decodes a JSON body and validates it. Decoding problems are
// reported as field errors, never as server faults.
func (v *Validator) Parse(r io.Reader) (*models.RegistrationRequest, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, decodeError(err)
	}
	return v.Validate(p)
}

func (v *Validator) Validate(p Payload) (*models.RegistrationRequest, error) {
	normalizePersonal(&p.PersonalInfo)
	p.PaymentImage = strings.TrimSpace(p.PaymentImage)
	p.PaymentID = strings.TrimSpace(p.PaymentID)
	p.PaymentMethod = trimPtr(p.PaymentMethod)

	ve := &ValidationError{}
	v.collect(ve, v.validate.Struct(p))
	checkTeam(ve, p.PersonalInfo)
	if !ve.Empty() {
		return nil, ve
	}
	return p.toRequest(), nil
}

// ValidatePersonal applies the step-one subset of the rules and returns the
// normalised input.
func (v *Validator) ValidatePersonal(info PersonalInfo) (PersonalInfo, error) {
	normalizePersonal(&info)

	ve := &ValidationError{}
	v.collect(ve, v.validate.Struct(info))
	checkTeam(ve, info)
	if !ve.Empty() {
		return info, ve
	}
	return info, nil
}

func (v *Validator) collect(ve *ValidationError, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add("body", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		ve.Add(fieldPath(fe.Namespace()), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be exactly 10 digits"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be a positive number"
	default:
		return "is invalid"
	}
}

// fieldPath drops Go type and embedded struct names from a namespace such
// as "Payload.PersonalInfo.teamMembers[0].email".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || unicode.IsUpper(rune(p[0])) {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

// checkTeam rejects group members who reuse another participant's email.
func checkTeam(ve *ValidationError, info PersonalInfo) {
	if info.EventType == nil || *info.EventType != models.RegistrationTypeGroup {
		return
	}
	seen := map[string]bool{}
	if info.Email != "" {
		seen[info.Email] = true
	}
	for i, m := range info.TeamMembers {
		if m.Email == "" {
			continue
		}
		if seen[m.Email] {
			ve.Add(fmt.Sprintf("teamMembers[%d].email", i), "duplicates another participant")
			continue
		}
		seen[m.Email] = true
	}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return NewValidationError(field, fmt.Sprintf("must be of type %s", typeErr.Type))
	case errors.Is(err, io.EOF):
		return NewValidationError("body", "request body is empty")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return NewValidationError("body", "request body must be valid JSON")
	default:
		return NewValidationError("body", err.Error())
	}
}

func normalizePersonal(info *PersonalInfo) {
	info.Name = strings.TrimSpace(info.Name)
	info.Phone = strings.TrimSpace(info.Phone)
	info.CollegeName = strings.TrimSpace(info.CollegeName)
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	info.Event = strings.TrimSpace(info.Event)
	info.Year = trimPtr(info.Year)
	info.AcademicYear = trimPtr(info.AcademicYear)
	eventType := models.RegistrationTypeIndividual
	if t := trimPtr(info.EventType); t != nil {
		eventType = strings.ToLower(*t)
	}
	info.EventType = &eventType
	for i := range info.TeamMembers {
		info.TeamMembers[i].Name = strings.TrimSpace(info.TeamMembers[i].Name)
		info.TeamMembers[i].Email = strings.ToLower(strings.TrimSpace(info.TeamMembers[i].Email))
	}
}

// trimPtr trims the value and treats a blank string as absent.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func (p Payload) toRequest() *models.RegistrationRequest {
	req := &models.RegistrationRequest{
		Name:          p.Name,
		Phone:         p.Phone,
		CollegeName:   p.CollegeName,
		Year:          DefaultYear,
		Email:         p.Email,
		EventID:       p.Event,
		EventType:     *p.EventType,
		TeamMembers:   []models.TeamMemberInput{},
		PaymentImage:  p.PaymentImage,
		PaymentMethod: models.DefaultPaymentMethod,
		PaymentID:     p.PaymentID,
		ClientFee:     DefaultClientFee,
	}
	switch {
	case p.Year != nil:
		req.Year = *p.Year
	case p.AcademicYear != nil:
		req.Year = *p.AcademicYear
	}
	if p.PaymentMethod != nil {
		req.PaymentMethod = *p.PaymentMethod
	}
	if p.TotalFee != nil {
		req.ClientFee = *p.TotalFee
	}
	if req.EventType == models.RegistrationTypeGroup {
		for _, m := range p.TeamMembers {
			req.TeamMembers = append(req.TeamMembers, models.TeamMemberInput{Name: m.Name, Email: m.Email})
		}
	}
	return req
}
