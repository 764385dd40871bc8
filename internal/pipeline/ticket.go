package pipeline

import (
	"context"
	"log/slog"
	"time"

	"airdesk/internal/classify"
	"airdesk/internal/events"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/metrics"
	"airdesk/internal/notifications"
	"airdesk/internal/stage"
	"airdesk/internal/store"
	"airdesk/internal/summary"
	"airdesk/internal/textutil"
	"airdesk/internal/ticket"
)

// CallSummarizer produces the dispatch summary for a call.
type CallSummarizer interface {
	Summarize(ctx context.Context, transcript string, record intake.Record, emergencyRedirected bool) summary.Summary
}

// TicketerConfig wires the ticket stage.
type TicketerConfig struct {
	Store          *store.Store
	Summarizer     CallSummarizer
	Notifier       notifications.Service
	Publisher      events.Publisher
	Metrics        *metrics.Collector
	SendIncomplete bool
	DashboardURL   string
	Now            func() time.Time
}

// Ticketer is the ticket stage.
type Ticketer struct {
	cfg    TicketerConfig
	logger *slog.Logger
}

// NewTicketer builds the ticket stage.
func NewTicketer(cfg TicketerConfig, logger *slog.Logger) *Ticketer {
	if cfg.Notifier == nil {
		cfg.Notifier = notifications.NewService(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ticketer{cfg: cfg, logger: logging.NewComponentLogger(logger, "ticket-stage")}
}

// SetLogger swaps in the per-call logger.
func (t *Ticketer) SetLogger(logger *slog.Logger) {
	t.logger = logging.NewComponentLogger(logger, "ticket-stage")
}

func (t *Ticketer) Prepare(_ context.Context, call *store.Call) error {
	return stage.ValidateCall("ticket", call)
}

func (t *Ticketer) Execute(ctx context.Context, call *store.Call) error {
	existing, err := t.cfg.Store.TicketForCall(ctx, call.ID)
	if err != nil {
		return stage.StoreError("ticket", "find ticket for call", err)
	}
	if existing != nil {
		call.TicketID = existing.ID
		t.logger.Info("ticket already exists for call",
			logging.String(logging.FieldTicketID, existing.ID),
			logging.String(logging.FieldEventType, "ticket_reused"),
		)
		return nil
	}

	settings, _, err := t.cfg.Store.GetFirmSettings(ctx, call.FirmID)
	if err != nil {
		return stage.StoreError("ticket", "load firm settings", err)
	}

	record := call.Record
	record.FillAliases()
	var s summary.Summary
	if t.cfg.Summarizer != nil {
		s = t.cfg.Summarizer.Summarize(ctx, call.Transcript, record, call.EmergencyRedirected)
	} else {
		level := classify.UrgencyLevel(record.IssueCategory, record.Urgency, call.EmergencyRedirected)
		s = summary.Fallback(record, level)
	}

	tk := &ticket.Ticket{
		CallID:      call.ID,
		FirmID:      call.FirmID,
		Intake:      record,
		SummaryJSON: s.JSON(),
		Transcript:  call.Transcript,
		Priority:    classify.PriorityFor(record),
		LeadStatus:  classify.LeadStatus(record, t.cfg.SendIncomplete || settings.SendIncomplete),
	}
	if err := t.cfg.Store.CreateTicket(ctx, tk); err != nil {
		return stage.StoreError("ticket", "create ticket", err)
	}
	call.TicketID = tk.ID
	t.cfg.Metrics.TicketCreated(string(tk.Priority), string(tk.LeadStatus))

	t.logger.Info("ticket created",
		logging.String(logging.FieldTicketID, tk.ID),
		logging.String(logging.FieldEventType, "ticket_created"),
		logging.String("priority", string(tk.Priority)),
		logging.String("lead_status", string(tk.LeadStatus)),
	)

	t.publish(ctx, tk)
	if tk.IsUrgent() {
		t.notifyUrgent(ctx, tk)
	}
	return nil
}

func (t *Ticketer) publish(ctx context.Context, tk *ticket.Ticket) {
	if err := t.cfg.Publisher.Publish(ctx, events.FromTicket(events.TicketCreated, tk, t.cfg.Now())); err != nil {
		logging.WarnWithContext(t.logger, "ticket event not published", "ticket_event_failed",
			logging.String(logging.FieldTicketID, tk.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "event subscribers miss this ticket"),
			logging.String(logging.FieldErrorHint, "check events.nats_url"),
		)
	}
}

func (t *Ticketer) notifyUrgent(ctx context.Context, tk *ticket.Ticket) {
	rec := tk.Intake
	payload := notifications.Payload{
		"ticketId": tk.ID,
		"issue":    rec.Issue(),
		"city":     textutil.TitleWords(rec.City),
		"caller":   rec.Name(),
		"phone":    textutil.FormatPhone(rec.Phone()),
	}
	if base := t.cfg.DashboardURL; base != "" && tk.CallID != "" {
		payload["url"] = base + "/calls/" + tk.CallID
	}
	if err := t.cfg.Notifier.Publish(ctx, notifications.EventUrgentTicket, payload); err != nil {
		logging.WarnWithContext(t.logger, "urgent ticket push failed", "urgent_notify_failed",
			logging.String(logging.FieldTicketID, tk.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "on-call staff rely on the dispatch e-mail only"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (t *Ticketer) HealthCheck(context.Context) stage.Health {
	if t.cfg.Store == nil {
		return stage.Unhealthy("ticket", "store not configured")
	}
	return stage.Healthy("ticket")
}
