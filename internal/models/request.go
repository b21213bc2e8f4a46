package models

// RegistrationRequest is a validated submission with defaults applied.
// ClientFee is what the browser claimed; the stored amount never uses it.
type RegistrationRequest struct {
	Name          string
	Phone         string
	CollegeName   string
	Year          string
	Email         string
	EventID       string
	EventType     string
	TeamMembers   []TeamMemberInput
	PaymentImage  string
	PaymentMethod string
	PaymentID     string
	ClientFee     float64
}

type TeamMemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
