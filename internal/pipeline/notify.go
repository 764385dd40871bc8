package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"airdesk/internal/email"
	"airdesk/internal/logging"
	"airdesk/internal/metrics"
	"airdesk/internal/notifications"
	"airdesk/internal/services"
	"airdesk/internal/stage"
	"airdesk/internal/store"
	"airdesk/internal/summary"
)

// MessageSender delivers a rendered e-mail with retries.
type MessageSender interface {
	Send(ctx context.Context, msg email.Message) (email.Result, error)
}

// NotifierConfig wires the notify stage.
type NotifierConfig struct {
	Store    *store.Store
	Renderer email.Renderer
	Sender   MessageSender
	Alerts   notifications.Service
	Metrics  *metrics.Collector
}

// Notifier is the notify stage.
type Notifier struct {
	cfg    NotifierConfig
	logger *slog.Logger
}

// NewNotifier builds the notify stage.
func NewNotifier(cfg NotifierConfig, logger *slog.Logger) *Notifier {
	if cfg.Alerts == nil {
		cfg.Alerts = notifications.NewService(nil)
	}
	return &Notifier{cfg: cfg, logger: logging.NewComponentLogger(logger, "notify-stage")}
}

// SetLogger swaps in the per-call logger.
func (n *Notifier) SetLogger(logger *slog.Logger) {
	n.logger = logging.NewComponentLogger(logger, "notify-stage")
}

func (n *Notifier) Prepare(_ context.Context, call *store.Call) error {
	if err := stage.ValidateCall("notify", call); err != nil {
		return err
	}
	if call.TicketID == "" {
		return services.Wrap(services.ErrValidation, "notify", "prepare", "Call has no ticket; retry the call", errors.New("ticket id empty"))
	}
	return nil
}

func (n *Notifier) Execute(ctx context.Context, call *store.Call) error {
	tk, err := n.cfg.Store.GetTicket(ctx, call.TicketID)
	if err != nil {
		return stage.StoreError("notify", "load ticket", err)
	}
	settings, found, err := n.cfg.Store.GetFirmSettings(ctx, call.FirmID)
	if err != nil {
		return stage.StoreError("notify", "load firm settings", err)
	}
	if !found || len(settings.NotifyEmails) == 0 {
		sendErr := errors.New("firm has no notification e-mails")
		if err := n.cfg.Store.RecordEmailAttempt(ctx, tk.ID, 0, sendErr); err != nil {
			logging.WarnWithContext(n.logger, "email status not recorded", "email_status_record_failed",
				logging.String(logging.FieldTicketID, tk.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check database health with airdesk status"),
				logging.String(logging.FieldImpact, "ticket keeps its previous email status"),
			)
		}
		return services.Wrap(services.ErrConfiguration, "notify", "resolve recipients",
			"Firm has no notification e-mails; add them in firm settings and retry the call", sendErr)
	}

	s, _ := summary.Parse(tk.SummaryJSON)
	msg, err := n.cfg.Renderer.Render(tk, s, settings)
	if err != nil {
		return services.Wrap(services.ErrValidation, "notify", "render email", "Dispatch e-mail could not be rendered", err)
	}

	result, sendErr := n.cfg.Sender.Send(ctx, msg)
	if errors.Is(sendErr, context.Canceled) {
		return sendErr
	}
	if err := n.cfg.Store.RecordEmailAttempt(ctx, tk.ID, result.Attempts, sendErr); err != nil {
		return stage.StoreError("notify", "record email attempt", err)
	}
	n.cfg.Metrics.EmailResult(sendErr == nil, result.Attempts)

	if sendErr != nil {
		if alertErr := n.cfg.Alerts.Publish(ctx, notifications.EventEmailFailed, notifications.Payload{
			"ticketId": tk.ID,
			"error":    sendErr,
		}); alertErr != nil {
			n.logger.Debug("email failure alert not sent", logging.Error(alertErr))
		}
		marker := services.ErrExternalTool
		if errors.Is(sendErr, email.ErrNotConfigured) {
			marker = services.ErrConfiguration
		}
		return services.Wrap(marker, "notify", "send email", "Dispatch e-mail failed; the ticket is still on the board", sendErr)
	}

	n.logger.Info("dispatch e-mail delivered",
		logging.String(logging.FieldTicketID, tk.ID),
		logging.String(logging.FieldEventType, "ticket_emailed"),
		logging.String("email_id", result.ID),
		logging.Int("attempts", result.Attempts),
	)
	return nil
}

func (n *Notifier) HealthCheck(context.Context) stage.Health {
	if n.cfg.Sender == nil {
		return stage.Unhealthy("notify", "e-mail sender not configured")
	}
	if enabled, ok := n.cfg.Sender.(interface{ Enabled() bool }); ok && !enabled.Enabled() {
		return stage.Unhealthy("notify", "email.resend_api_key not set")
	}
	return stage.Healthy("notify")
}
