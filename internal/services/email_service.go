package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var errEmailDisabled = errors.New("email reports are not configured")

type EmailService struct {
	client     *sendgrid.Client
	fromEmail  string
	fromName   string
	recipients []string
}

// NewEmailService returns a service that mails admin reports. Without an API
// key, a sender or recipients it is disabled and every send is skipped.
func NewEmailService(apiKey, fromEmail, fromName string, recipients []string) *EmailService {
	s := &EmailService{
		fromEmail:  fromEmail,
		fromName:   fromName,
		recipients: recipients,
	}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

// Enabled reports whether reports will actually be mailed
func (s *EmailService) Enabled() bool {
	return s != nil && s.client != nil && s.fromEmail != "" && len(s.recipients) > 0
}

// SendReport mails the report to every configured admin address
func (s *EmailService) SendReport(ctx context.Context, subject, plainContent, htmlContent string) error {
	if !s.Enabled() {
		return errEmailDisabled
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)

	var failed []error
	for _, addr := range s.recipients {
		to := mail.NewEmail("", addr)
		message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)

		response, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			failed = append(failed, fmt.Errorf("send report to %s: %w", addr, err))
			continue
		}
		if response.StatusCode >= 400 {
			failed = append(failed, fmt.Errorf("failed to send report to %s: %d", addr, response.StatusCode))
			continue
		}
		slog.Debug("Report email sent", "to", addr, "status", response.StatusCode)
	}
	return errors.Join(failed...)
}
