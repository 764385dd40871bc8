package daemon

import (
	"context"
	"net/http"
	"strings"

	"airdesk/internal/api"
	"airdesk/internal/config"
	"airdesk/internal/firm"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/store"
)

func (s *apiServer) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req api.SessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	settings, err := s.firmSettings(r.Context(), firmFromRequest(r))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	session := intake.NewSession(settings.IntakeContext(), strings.TrimSpace(req.CallerID))
	turn := session.Start()
	if err := s.daemon.deps.Sessions.Save(r.Context(), settings.FirmID, session); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.log()).Debug("intake session started",
		logging.String("session_id", session.ID),
		logging.String(logging.FieldEventType, "intake_session_started"),
	)
	s.writeJSON(w, http.StatusCreated, intakeTurn(session, turn, ""))
}

// handleTurn advances a live session by one caller utterance. A session that
// reaches close is queued as a call and removed from the session store.
func (s *apiServer) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req api.TurnRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	firmID := firmFromRequest(r)
	session, err := s.daemon.deps.Sessions.Load(ctx, firmID, r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	mode := s.intakeMode()
	var turn intake.Turn
	if mode == config.IntakeModeLLM {
		turn = intake.LLMTurn(ctx, s.daemon.deps.IntakeChatter, session, req.Utterance, s.log())
	} else {
		turn = session.Advance(req.Utterance)
	}
	s.daemon.deps.Metrics.IntakeTurn(mode)

	if !turn.Done {
		if err := s.daemon.deps.Sessions.Save(ctx, firmID, session); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, intakeTurn(session, turn, ""))
		return
	}

	call, err := s.daemon.deps.Store.NewCall(ctx, store.NewCallInput{
		FirmID:     firmID,
		CallerID:   session.CallerID,
		Transcript: session.Transcript(),
		Record:     session.Record,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.daemon.deps.Sessions.Delete(ctx, firmID, session.ID); err != nil {
		logging.WarnWithContext(s.log(), "failed to delete closed intake session", "intake_session_cleanup",
			logging.String("session_id", session.ID),
			logging.String(logging.FieldErrorHint, "session expires after its ttl"),
			logging.Error(err),
		)
	}
	logging.WithContext(ctx, s.log()).Info("intake session closed",
		logging.String("session_id", session.ID),
		logging.String(logging.FieldCallID, call.ID),
		logging.Int("agent_messages", session.AgentMessages),
		logging.String(logging.FieldEventType, "intake_session_closed"),
	)
	s.writeJSON(w, http.StatusOK, intakeTurn(session, turn, call.ID))
}

func (s *apiServer) intakeMode() string {
	if s.cfg.LLM.IntakeMode == config.IntakeModeLLM && s.daemon.deps.IntakeChatter != nil {
		return config.IntakeModeLLM
	}
	return config.IntakeModeRules
}

// firmSettings returns the stored settings for firmID or defaults when the
// firm has not saved any yet.
func (s *apiServer) firmSettings(ctx context.Context, firmID string) (firm.Settings, error) {
	settings, found, err := s.daemon.deps.Store.GetFirmSettings(ctx, firmID)
	if err != nil {
		return firm.Settings{}, err
	}
	if !found {
		settings = firm.Defaults(firmID)
	}
	return settings, nil
}

func intakeTurn(session *intake.Session, turn intake.Turn, callID string) api.IntakeTurn {
	updates := turn.Updates
	if updates == nil {
		updates = map[string]any{}
	}
	return api.IntakeTurn{
		SessionID:    session.ID,
		AssistantSay: turn.AssistantSay,
		NextState:    string(turn.NextState),
		Updates:      updates,
		Done:         turn.Done,
		Record:       session.Record,
		CallID:       callID,
	}
}
