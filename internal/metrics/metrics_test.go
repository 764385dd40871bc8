package metrics

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.TicketCreated("URGENT", "NEW")
	c.TicketCreated("URGENT", "NEW")
	c.EmailResult(true, 2)
	c.EmailResult(false, 3)
	c.StageFinished("extract", "ok", 50*time.Millisecond)
	c.ObserveLog(slog.LevelWarn, "email_retry")
	c.ObserveLog(slog.LevelError, "")

	if got := testutil.ToFloat64(c.TicketsCreated.WithLabelValues("URGENT", "NEW")); got != 2 {
		t.Fatalf("tickets_created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.EmailsSent.WithLabelValues("failed")); got != 1 {
		t.Fatalf("emails failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.LogEvents.WithLabelValues("warn", "email_retry")); got != 1 {
		t.Fatalf("log events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.LogEvents.WithLabelValues("error", "unspecified")); got != 1 {
		t.Fatalf("unspecified log events = %v, want 1", got)
	}
}

func TestSetCallCountsResets(t *testing.T) {
	c := New()
	c.SetCallCounts(map[string]int{"received": 2, "failed": 1})
	c.SetCallCounts(map[string]int{"notified": 4})
	if got := testutil.CollectAndCount(c.CallsInPipeline); got != 1 {
		t.Fatalf("expected one series after reset, got %d", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.HTTPRequest("GET", "/api/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `airdesk_http_requests_total{code="200",method="GET",route="/api/health"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.TicketCreated("NORMAL", "NEW")
	c.EmailResult(true, 1)
	c.ObserveLog(slog.LevelWarn, "x")
	c.SetCallCounts(map[string]int{"a": 1})
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil collector handler code = %d", rec.Code)
	}
}
