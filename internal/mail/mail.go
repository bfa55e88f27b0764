package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/metrics"
)

var (
	ErrUnknownBackend = errors.New("unknown mail backend")
	ErrEmptyRecipient = errors.New("mail recipient is empty")
)

// Backend identifies a mail transport.
type Backend string

const (
	BackendSMTP Backend = "smtp"
	BackendSES  Backend = "ses"
)

// Dispatcher delivers a single plain-text message.
type Dispatcher interface {
	Send(ctx context.Context, to, body, subject string) error
}

var backendRegistry = make(map[Backend]func(*config.Config) (Dispatcher, error))

// RegisterBackend registers a constructor for a backend. Backends call it from
// init().
func RegisterBackend(b Backend, constructor func(*config.Config) (Dispatcher, error)) {
	backendRegistry[b] = constructor
}

// BackendFor picks SMTP when local mail is enabled and SES otherwise.
func BackendFor(cfg *config.Config) Backend {
	if cfg.LocalMailEnable {
		return BackendSMTP
	}
	return BackendSES
}

// New builds the dispatcher selected by cfg, wrapped with logging, metrics and
// the configured send timeout.
func New(cfg *config.Config) (Dispatcher, error) {
	b := BackendFor(cfg)
	constructor, ok := backendRegistry[b]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, b)
	}
	d, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("mail backend %s: %w", b, err)
	}
	return Instrument(b, d, cfg.MailTimeout), nil
}

type instrumented struct {
	backend Backend
	next    Dispatcher
	timeout time.Duration
}

// Instrument wraps d so every send is bounded by timeout, logged and counted.
func Instrument(b Backend, d Dispatcher, timeout time.Duration) Dispatcher {
	return &instrumented{backend: b, next: d, timeout: timeout}
}

func (i *instrumented) Send(ctx context.Context, to, body, subject string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	err := i.next.Send(ctx, to, body, subject)
	metrics.MailSent.WithLabelValues(string(i.backend), metrics.Result(err)).Inc()
	if err != nil {
		LogError(i.backend, to, err)
		return err
	}
	LogSend(i.backend, to, subject, time.Since(start))
	return nil
}

// Deliver sends a rendered message.
func Deliver(ctx context.Context, d Dispatcher, m Message) error {
	return d.Send(ctx, m.To, m.Body, m.Subject)
}
