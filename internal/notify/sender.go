package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
)

// Sender delivers a single email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPSenderFromEnv reads SMTP_* environment variables.
func NewSMTPSenderFromEnv() (*SMTPSender, error) {
	s := &SMTPSender{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
	if s.host == "" || s.port == "" || s.from == "" {
		return nil, fmt.Errorf("smtp configuration is incomplete")
	}
	return s, nil
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, message); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}
