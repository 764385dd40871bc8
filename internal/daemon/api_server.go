package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"airdesk/internal/api"
	"airdesk/internal/config"
	"airdesk/internal/email"
	"airdesk/internal/logging"
	"airdesk/internal/services"
	"airdesk/internal/sessions"
	"airdesk/internal/ticket"
)

const maxBodyBytes = 1 << 20

type apiServer struct {
	cfg     *config.Config
	logger  *slog.Logger
	daemon  *Daemon
	limiter *firmLimiter

	handler http.Handler
	server  *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		cfg:     cfg,
		logger:  logger,
		daemon:  d,
		limiter: newFirmLimiter(cfg.API.RatePerSecond, cfg.API.Burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.Handle("GET /metrics", srv.authenticated(srv.metricsHandler()))

	firmRoutes := map[string]http.HandlerFunc{
		"GET /api/status":                      srv.handleStatus,
		"POST /api/calls":                      srv.handleSubmitCall,
		"GET /api/calls":                       srv.handleListCalls,
		"POST /api/calls/retry":                srv.handleRetryCalls,
		"POST /api/intake/sessions":            srv.handleStartSession,
		"POST /api/intake/sessions/{id}/turns": srv.handleTurn,
		"GET /api/tickets":                     srv.handleListTickets,
		"GET /api/tickets/board":               srv.handleBoard,
		"GET /api/tickets/{id}":                srv.handleGetTicket,
		"PATCH /api/tickets/{id}/status":       srv.handleUpdateStatus,
		"DELETE /api/tickets/{id}":             srv.handleDeleteTicket,
		"GET /api/firm/settings":               srv.handleGetSettings,
		"PUT /api/firm/settings":               srv.handlePutSettings,
		"GET /api/firm/voice-agent":            srv.handleVoiceAgent,
		"POST /api/email/test":                 srv.handleEmailTest,
	}
	for pattern, handler := range firmRoutes {
		mux.Handle(pattern, srv.authenticated(srv.firmScoped(handler)))
	}

	srv.handler = srv.instrument(mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) serve(listener net.Listener) error {
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *apiServer) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (s *apiServer) metricsHandler() http.Handler {
	if s.daemon.deps.Metrics == nil {
		return http.NotFoundHandler()
	}
	return s.daemon.deps.Metrics.Handler()
}

func (s *apiServer) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeFailure maps domain errors onto HTTP status codes. Unexpected errors
// are logged and reported generically.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.WithContext(r.Context(), s.log()).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, errorMessage(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, sessions.ErrNotFound),
		errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ticket.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ticket.ErrInvalidStatus),
		errors.Is(err, ticket.ErrInvalidTransition),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, email.ErrNotConfigured),
		errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		return "Ticket not found"
	case errors.Is(err, sessions.ErrNotFound):
		return "Intake session not found"
	case errors.Is(err, ticket.ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ticket.ErrInvalidStatus):
		return "Invalid status. Must be READY, DISPATCHED, or COMPLETED"
	case errors.Is(err, ticket.ErrInvalidTransition):
		return "Cannot move ticket backwards"
	}
	if details := services.Details(err); details.Message != "" {
		return details.Message
	}
	return err.Error()
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
