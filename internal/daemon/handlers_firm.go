package daemon

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"airdesk/internal/api"
	"airdesk/internal/email"
	"airdesk/internal/firm"
	"airdesk/internal/logging"
	"airdesk/internal/services"
	"airdesk/internal/sessions"
	"airdesk/internal/voice"
)

// handleHealth reports database, session store, and workflow readiness. It
// answers 503 when any dependency is unhealthy.
func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := api.HealthResponse{Status: "ok", Database: "ok", Sessions: "ok"}

	db, err := s.daemon.deps.Store.CheckHealth(ctx)
	switch {
	case err != nil:
		resp.Database = err.Error()
	case db.Error != "":
		resp.Database = db.Error
	case len(db.MissingTables) > 0:
		resp.Database = "missing tables: " + strings.Join(db.MissingTables, ", ")
	}

	// Probe with an ID that cannot exist; anything but ErrNotFound means the
	// backend is unreachable.
	if _, err := s.daemon.deps.Sessions.Load(ctx, "health", uuid.NewString()); err != nil && !errors.Is(err, sessions.ErrNotFound) {
		resp.Sessions = err.Error()
	}

	resp.Workflow = api.FromStatusSummary(s.daemon.deps.Workflow.Status(ctx))

	code := http.StatusOK
	if resp.Database != "ok" || resp.Sessions != "ok" {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromStatusSummary(s.daemon.deps.Workflow.Status(r.Context())))
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.firmSettings(r.Context(), firmFromRequest(r))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings replaces the firm's settings. The firm ID always comes
// from the request header, never the body.
func (s *apiServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings firm.Settings
	if !s.decodeJSON(w, r, &settings) {
		return
	}
	settings.FirmID = firmFromRequest(r)
	if err := s.daemon.deps.Store.SaveFirmSettings(r.Context(), &settings); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.log()).Info("firm settings saved",
		logging.Int("notify_emails", len(settings.NotifyEmails)),
		logging.String(logging.FieldEventType, "firm_settings_saved"),
	)
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *apiServer) handleVoiceAgent(w http.ResponseWriter, r *http.Request) {
	settings, err := s.firmSettings(r.Context(), firmFromRequest(r))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	payload, err := voice.BuildAgent(settings).Payload()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp := api.VoiceAgentResponse{Assistant: payload}
	if strings.TrimSpace(s.cfg.Voice.AppURL) != "" {
		hooks, err := voice.WebhookURLs(s.cfg.Voice.AppURL)
		if err != nil {
			s.writeFailure(w, r, services.Wrap(services.ErrConfiguration, "voice", "webhooks", "invalid voice.app_url", err))
			return
		}
		resp.Webhooks = &hooks
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleEmailTest renders the sample ticket with the firm's settings and
// sends it to the firm's notification recipients.
func (s *apiServer) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	if s.daemon.deps.Sender == nil {
		s.writeFailure(w, r, email.ErrNotConfigured)
		return
	}
	settings, err := s.firmSettings(r.Context(), firmFromRequest(r))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if len(settings.NotifyEmails) == 0 {
		s.writeError(w, http.StatusBadRequest, "no notification emails configured for this firm")
		return
	}
	t, sum := email.SampleTicket(time.Now())
	t.FirmID = settings.FirmID
	msg, err := s.daemon.deps.Renderer.Render(t, sum, settings)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	msg.Subject = "[TEST] " + msg.Subject
	result, err := s.daemon.deps.Sender.Send(r.Context(), msg)
	if err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			s.writeFailure(w, r, err)
			return
		}
		s.writeFailure(w, r, services.Wrap(services.ErrExternalTool, "email", "test send", "test e-mail failed", err))
		return
	}
	s.writeJSON(w, http.StatusOK, api.EmailTestResponse{
		Sent:     true,
		ID:       result.ID,
		Attempts: result.Attempts,
		To:       msg.To,
		Subject:  msg.Subject,
	})
}
