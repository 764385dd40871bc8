package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airdesk/internal/logging"
)

const (
	defaultMaxAttempts = 3
	// DefaultFrom works without a verified sending domain.
	DefaultFrom = "AirDesk <onboarding@resend.dev>"
)

// Deliverer sends a single message.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) (string, error)
}

// SenderConfig configures retries and envelope defaults.
type SenderConfig struct {
	From        string
	CC          []string
	MaxAttempts int
}

// Result describes a completed send.
type Result struct {
	ID       string
	Attempts int
}

// Sender delivers messages with bounded exponential backoff.
type Sender struct {
	deliverer   Deliverer
	from        string
	cc          []string
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

// SenderOption customizes a Sender.
type SenderOption func(*Sender)

// WithSleep replaces the backoff wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SenderOption {
	return func(s *Sender) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithLogger sets the sender logger.
func WithLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = logging.NewComponentLogger(logger, "email")
	}
}

// NewSender wraps a Deliverer with retries.
func NewSender(deliverer Deliverer, cfg SenderConfig, opts ...SenderOption) *Sender {
	s := &Sender{
		deliverer:   deliverer,
		from:        cfg.From,
		cc:          append([]string(nil), cfg.CC...),
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepContext,
		logger:      logging.NewComponentLogger(nil, "email"),
	}
	if s.from == "" {
		s.from = DefaultFrom
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether the underlying deliverer can send. Deliverers
// without an Enabled method are assumed ready.
func (s *Sender) Enabled() bool {
	if s == nil || s.deliverer == nil {
		return false
	}
	if e, ok := s.deliverer.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

// Backoff returns the wait before the given attempt (2 or later): 1s, 2s, 4s, ...
func Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return time.Duration(1<<(attempt-2)) * time.Second
}

// Send delivers msg, retrying failures. When every attempt fails the last
// error is returned together with the attempt count.
func (s *Sender) Send(ctx context.Context, msg Message) (Result, error) {
	if msg.From == "" {
		msg.From = s.from
	}
	if len(msg.CC) == 0 && len(s.cc) > 0 {
		msg.CC = append([]string(nil), s.cc...)
	}
	logger := logging.WithContext(ctx, s.logger)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, Backoff(attempt)); err != nil {
				return Result{Attempts: attempt - 1}, fmt.Errorf("send email: %w", err)
			}
		}
		id, err := s.deliverer.Deliver(ctx, msg)
		if err == nil {
			logger.Info("dispatch email sent",
				logging.String(logging.FieldEventType, "email_sent"),
				logging.String("email_id", id),
				logging.Int("attempt", attempt),
				logging.Int("recipients", len(msg.To)+len(msg.CC)),
			)
			return Result{ID: id, Attempts: attempt}, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
			return Result{Attempts: attempt}, fmt.Errorf("send email: %w", err)
		}
		logging.WarnWithContext(logger, "dispatch email attempt failed", "email_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", s.maxAttempts),
			logging.Error(err),
			logging.String(logging.FieldImpact, "dispatch inbox has not received the ticket yet"),
			logging.String(logging.FieldErrorHint, "check email.resend_api_key and Resend status"),
		)
	}
	return Result{Attempts: s.maxAttempts}, fmt.Errorf("send email failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
