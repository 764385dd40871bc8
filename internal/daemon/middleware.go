package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"airdesk/internal/logging"
	"airdesk/internal/services"
)

// authenticated validates the bearer token. An empty paths.api_token
// disables authentication.
func (s *apiServer) authenticated(next http.Handler) http.Handler {
	token := strings.TrimSpace(s.cfg.Paths.APIToken)
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// firmScoped resolves the tenant from X-Firm-ID and applies the per-firm
// rate limit.
func (s *apiServer) firmScoped(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firmID := strings.TrimSpace(r.Header.Get("X-Firm-ID"))
		if firmID == "" {
			s.writeError(w, http.StatusBadRequest, "X-Firm-ID header is required")
			return
		}
		if !s.limiter.allow(firmID) {
			s.daemon.deps.Metrics.Limited(firmID)
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r.WithContext(services.WithFirmID(r.Context(), firmID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags each request with a correlation ID and records metrics.
func (s *apiServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(services.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.daemon.deps.Metrics.HTTPRequest(r.Method, route, rec.status, elapsed)
		s.log().Debug("api request",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldCorrelationID, requestID),
		)
	})
}

func firmFromRequest(r *http.Request) string {
	firmID, _ := services.FirmIDFromContext(r.Context())
	return firmID
}
