package registration

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techsymposium/internal/models"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Fields
}

func TestParseAppliesDefaults(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","collegeName":"MIT","email":" Ann@X.com ","event":"evt1",
		"paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	req, err := NewValidator().Parse(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "ann@x.com", req.Email)
	assert.Equal(t, "1", req.Year)
	assert.Equal(t, "UPI", req.PaymentMethod)
	assert.Equal(t, models.RegistrationTypeIndividual, req.EventType)
	assert.Empty(t, req.TeamMembers)
	assert.Equal(t, 100.0, req.ClientFee)
	assert.Equal(t, "evt1", req.EventID)
}

func TestParseUsesAcademicYearWhenYearMissing(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","collegeName":"MIT","email":"ann@x.com","event":"evt1",
		"academicYear":"3","paymentImage":"https://img/a.png","paymentId":"PAY1","paymentMethod":"Card"}`

	req, err := NewValidator().Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "3", req.Year)
	assert.Equal(t, "Card", req.PaymentMethod)
}

func TestParseReportsEachInvalidField(t *testing.T) {
	body := `{"name":"","phone":"12345","collegeName":"MIT","email":"not-an-email","event":"",
		"eventType":"team","paymentImage":"not a url","paymentId":"","totalFee":0}`

	_, err := NewValidator().Parse(strings.NewReader(body))
	fields := fieldErrors(t, err)

	assert.Equal(t, []string{"is required"}, fields["name"])
	assert.Equal(t, []string{"must be exactly 10 digits"}, fields["phone"])
	assert.Equal(t, []string{"must be a valid email address"}, fields["email"])
	assert.Equal(t, []string{"is required"}, fields["event"])
	assert.Equal(t, []string{"must be one of: individual, group"}, fields["eventType"])
	assert.Equal(t, []string{"must be a valid URL"}, fields["paymentImage"])
	assert.Equal(t, []string{"is required"}, fields["paymentId"])
	assert.Equal(t, []string{"must be a positive number"}, fields["totalFee"])
	assert.NotContains(t, fields, "collegeName")
}

func TestParseRequiresCollegeName(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","email":"ann@x.com","event":"evt1",
		"paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	_, err := NewValidator().Parse(strings.NewReader(body))
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"is required"}, fields["collegeName"])
	assert.Len(t, fields, 1)
}

func TestParseGroupWithoutTeamMembers(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","collegeName":"MIT","email":"ann@x.com","event":"evt1",
		"eventType":"group","paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	req, err := NewValidator().Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationTypeGroup, req.EventType)
	assert.Empty(t, req.TeamMembers)
}

func TestParsePhoneMustBeDigits(t *testing.T) {
	body := `{"name":"Ann","phone":"12345abcde","collegeName":"MIT","email":"ann@x.com","event":"evt1",
		"paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	_, err := NewValidator().Parse(strings.NewReader(body))
	assert.Contains(t, fieldErrors(t, err), "phone")
}

func TestParseTeamMemberErrorsAreKeyedByIndex(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","collegeName":"MIT","email":"ann@x.com","event":"evt1",
		"eventType":"group","teamMembers":[{"name":"Bob","email":"bob@x.com"},{"name":"","email":"nope"},{"name":"Ann2","email":"ANN@x.com"}],
		"paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	_, err := NewValidator().Parse(strings.NewReader(body))
	fields := fieldErrors(t, err)

	assert.Equal(t, []string{"is required"}, fields["teamMembers[1].name"])
	assert.Equal(t, []string{"must be a valid email address"}, fields["teamMembers[1].email"])
	assert.Equal(t, []string{"duplicates another participant"}, fields["teamMembers[2].email"])
	assert.NotContains(t, fields, "teamMembers[0].email")
}

func TestParseIndividualDropsTeamMembers(t *testing.T) {
	body := `{"name":"Ann","phone":"1234567890","collegeName":"MIT","email":"ann@x.com","event":"evt1",
		"eventType":"individual","teamMembers":[{"name":"Bob","email":"bob@x.com"}],
		"paymentImage":"https://img/a.png","paymentId":"PAY1"}`

	req, err := NewValidator().Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, req.TeamMembers)
}

func TestParseMalformedBodies(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty", ``, "body"},
		{"syntax", `{"name":`, "body"},
		{"wrong type", `{"phone":1234567890}`, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewValidator().Parse(strings.NewReader(tt.body))
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestValidatePersonal(t *testing.T) {
	group := "group"
	info := PersonalInfo{
		Name: " Ann ", Phone: "1234567890", CollegeName: "MIT", Email: "ANN@x.com", Event: "evt1",
		EventType:   &group,
		TeamMembers: []TeamMemberPayload{{Name: "Bob", Email: "bob@x.com"}},
	}

	normalized, err := NewValidator().ValidatePersonal(info)
	require.NoError(t, err)
	assert.Equal(t, "Ann", normalized.Name)
	assert.Equal(t, "ann@x.com", normalized.Email)

	info.Phone = "123"
	_, err = NewValidator().ValidatePersonal(info)
	assert.Contains(t, fieldErrors(t, err), "phone")
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "email", fieldPath("Payload.PersonalInfo.email"))
	assert.Equal(t, "teamMembers[0].email", fieldPath("Payload.PersonalInfo.teamMembers[0].email"))
	assert.Equal(t, "paymentId", fieldPath("Payload.PaymentInfo.paymentId"))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	ve := NewValidationError("phone", "must be exactly 10 digits")
	ve.Add("email", "is required")
	assert.Equal(t, "validation failed: email: is required; phone: must be exactly 10 digits", ve.Error())
}
