package daemon

import (
	"net/http"
	"strings"

	"airdesk/internal/api"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/store"
)

func (s *apiServer) handleSubmitCall(w http.ResponseWriter, r *http.Request) {
	var req api.CallSubmission
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Record.FillAliases()
	if strings.TrimSpace(req.Transcript) == "" && req.Record == (intake.Record{}) {
		s.writeError(w, http.StatusBadRequest, "transcript or record is required")
		return
	}
	firmID := firmFromRequest(r)
	call, err := s.daemon.deps.Store.NewCall(r.Context(), store.NewCallInput{
		FirmID:              firmID,
		CallerID:            strings.TrimSpace(req.CallerID),
		Transcript:          req.Transcript,
		Record:              req.Record,
		EmergencyRedirected: req.EmergencyRedirected,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.log()).Info("call queued",
		logging.String(logging.FieldCallID, call.ID),
		logging.String(logging.FieldEventType, "call_received"),
		logging.Bool("emergency_redirected", call.EmergencyRedirected),
	)
	s.writeJSON(w, http.StatusAccepted, api.CallAccepted{CallID: call.ID, Status: string(call.Status)})
}

func (s *apiServer) handleListCalls(w http.ResponseWriter, r *http.Request) {
	var statuses []store.CallStatus
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := store.ParseCallStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown call status "+value)
			return
		}
		statuses = append(statuses, status)
	}
	calls, err := s.daemon.deps.Store.ListCalls(r.Context(), firmFromRequest(r), statuses...)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out := api.CallListResponse{Calls: make([]api.Call, 0, len(calls))}
	for _, call := range calls {
		out.Calls = append(out.Calls, api.FromCall(call))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type retryRequest struct {
	IDs []string `json:"ids"`
}

// handleRetryCalls requeues the firm's failed calls, or the listed subset.
func (s *apiServer) handleRetryCalls(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	firmID := firmFromRequest(r)
	ids := req.IDs
	if len(ids) == 0 {
		failed, err := s.daemon.deps.Store.ListCalls(r.Context(), firmID, store.CallFailed)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		for _, call := range failed {
			ids = append(ids, call.ID)
		}
	} else {
		owned := ids[:0:0]
		for _, id := range ids {
			call, err := s.daemon.deps.Store.GetCall(r.Context(), id)
			if err != nil {
				s.writeFailure(w, r, err)
				return
			}
			if call != nil && call.FirmID == firmID {
				owned = append(owned, id)
			}
		}
		ids = owned
	}
	if len(ids) == 0 {
		s.writeJSON(w, http.StatusOK, api.RetryResponse{})
		return
	}
	updated, err := s.daemon.deps.Store.RetryFailed(r.Context(), ids...)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RetryResponse{Updated: updated})
}
