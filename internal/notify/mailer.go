// Package notify sends registration confirmation e-mails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"

	"techsymposium/internal/config"
	"techsymposium/internal/logger"
	"techsymposium/internal/models"
)

const subject = "Your Tech Symposium registration is confirmed"

var confirmationBody = template.Must(template.New("confirmation").Parse(`Hello {{.Name}},

Your registration for "{{.EventTitle}}" is confirmed.

Registration ID: {{.RegistrationID}}
Type:            {{.RegistrationType}}
Participants:    {{.ParticipantCount}}
Amount paid:     {{.TotalAmount}}
{{- if .TeamMembers}}

Team members:
{{- range .TeamMembers}}
  - {{.Name}} <{{.Email}}>
{{- end}}
{{- end}}

Bring your entry pass to the venue. See you there!
`))

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg    config.EmailConfig
	send   SendFunc
	logger *logger.Logger
}

func NewMailer(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: log}
}

// WithSender replaces the SMTP transport.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

// SendConfirmation mails the registrant. Team members are listed in the
// body but not mailed.
func (m *Mailer) SendConfirmation(ctx context.Context, evt models.RegistrationCreatedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.Email == "" {
		return errors.New("registration event has no recipient")
	}

	msg, err := m.compose(evt)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}
	addr := net.JoinHostPort(m.cfg.SMTPHost, m.cfg.SMTPPort)

	if err := m.send(addr, auth, m.cfg.From, []string{evt.Email}, msg); err != nil {
		m.logger.Warn("NOTIFY", fmt.Sprintf("Failed to e-mail %s for registration %s: %v", evt.Email, evt.RegistrationID, err))
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("NOTIFY", fmt.Sprintf("Confirmation sent to %s for registration %s", evt.Email, evt.RegistrationID))
	return nil
}

func (m *Mailer) compose(evt models.RegistrationCreatedEvent) ([]byte, error) {
	var body bytes.Buffer
	if err := confirmationBody.Execute(&body, evt); err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", evt.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return msg.Bytes(), nil
}
