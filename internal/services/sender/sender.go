// Package sender turns queued notices into plain-text emails.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/lib/smtp"
	"github.com/trainrup/billing/internal/models"
)

// Service consumes notification messages and sends them by mail.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New creates a sender Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{transport: transport, log: log}
}

// SendTrialExpired handles a queued trial-expired notice. Returning an
// error requeues the message.
func (s *Service) SendTrialExpired(body []byte) error {
	var notice models.TrialExpiredNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Your trial period has ended"
	bodyText := fmt.Sprintf(`Hello %s,

Your trial period ended on %s and your account has been suspended.

To keep using the platform, please contact us to activate a subscription.`,
		notice.Username, notice.TrialEndDate)

	return s.sendEmail([]string{notice.Email}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to))
	return nil
}
