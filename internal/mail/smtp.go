package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/tus-lockers/locker-backend/internal/config"
)

func init() {
	RegisterBackend(BackendSMTP, func(cfg *config.Config) (Dispatcher, error) {
		return NewSMTP(cfg)
	})
}

// SMTP relays through a submission server with STARTTLS and PLAIN auth.
type SMTP struct {
	from   string
	client *gomail.Client
}

func NewSMTP(cfg *config.Config) (*SMTP, error) {
	if cfg.SenderMailAddress == "" || cfg.MailAppKey == "" {
		return nil, config.ErrMissingSMTPSender
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.SenderMailAddress),
		gomail.WithPassword(cfg.MailAppKey),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	}
	if cfg.MailTimeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.MailTimeout))
	}
	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{from: cfg.SenderMailAddress, client: client}, nil
}

func (s *SMTP) Send(ctx context.Context, to, body, subject string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
