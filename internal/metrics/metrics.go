// Package metrics exposes AirDesk's Prometheus collectors on a private
// registry served at /metrics.
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airdesk"

// Collector holds the daemon's metric vectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	TicketsCreated  *prometheus.CounterVec
	TicketMoves     *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
	EmailAttempts   prometheus.Histogram
	StageRuns       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	LogEvents       *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	IntakeTurns     *prometheus.CounterVec
	CallsInPipeline *prometheus.GaugeVec
	CallsReclaimed  *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		TicketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Tickets created by priority and lead status",
		}, []string{"priority", "lead_status"}),
		TicketMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_moves_total",
			Help:      "Ticket status changes by target status",
		}, []string{"status"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Dispatch e-mails by final result",
		}, []string{"result"}),
		EmailAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_attempts",
			Help:      "Delivery attempts per dispatch e-mail",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Workflow stage executions by outcome",
		}, []string{"stage", "result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Workflow stage duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		LogEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_events_total",
			Help:      "Warning and error log lines by event type",
		}, []string{"level", "event_type"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-firm rate limiter",
		}, []string{"firm_id"}),
		IntakeTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_turns_total",
			Help:      "Live intake turns by mode",
		}, []string{"mode"}),
		CallsInPipeline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls",
			Help:      "Calls by processing status",
		}, []string{"status"}),
		CallsReclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_reclaimed_total",
			Help:      "Calls returned to their stage start after the heartbeat went stale",
		}, []string{"lane"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.TicketsCreated,
		c.TicketMoves,
		c.EmailsSent,
		c.EmailAttempts,
		c.StageRuns,
		c.StageDuration,
		c.HTTPRequests,
		c.HTTPDuration,
		c.LogEvents,
		c.RateLimited,
		c.IntakeTurns,
		c.CallsInPipeline,
		c.CallsReclaimed,
	)
	return c
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// TicketCreated counts a new ticket.
func (c *Collector) TicketCreated(priority, leadStatus string) {
	if c == nil {
		return
	}
	c.TicketsCreated.WithLabelValues(priority, leadStatus).Inc()
}

// TicketMoved counts a status change.
func (c *Collector) TicketMoved(status string) {
	if c == nil {
		return
	}
	c.TicketMoves.WithLabelValues(status).Inc()
}

// EmailResult records the outcome of a dispatch e-mail.
func (c *Collector) EmailResult(sent bool, attempts int) {
	if c == nil {
		return
	}
	result := "failed"
	if sent {
		result = "sent"
	}
	c.EmailsSent.WithLabelValues(result).Inc()
	if attempts > 0 {
		c.EmailAttempts.Observe(float64(attempts))
	}
}

// StageFinished records a stage run.
func (c *Collector) StageFinished(stage, result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.StageRuns.WithLabelValues(stage, result).Inc()
	c.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// HTTPRequest records a served request.
func (c *Collector) HTTPRequest(method, route string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Reclaimed counts calls a lane took back from a stalled stage.
func (c *Collector) Reclaimed(lane string, count int64) {
	if c == nil || count <= 0 {
		return
	}
	c.CallsReclaimed.WithLabelValues(lane).Add(float64(count))
}

// Limited counts a rate-limited request.
func (c *Collector) Limited(firmID string) {
	if c == nil {
		return
	}
	c.RateLimited.WithLabelValues(firmID).Inc()
}

// IntakeTurn counts a live intake turn.
func (c *Collector) IntakeTurn(mode string) {
	if c == nil {
		return
	}
	c.IntakeTurns.WithLabelValues(mode).Inc()
}

// SetCallCounts replaces the calls gauge.
func (c *Collector) SetCallCounts(counts map[string]int) {
	if c == nil {
		return
	}
	c.CallsInPipeline.Reset()
	for status, n := range counts {
		c.CallsInPipeline.WithLabelValues(status).Set(float64(n))
	}
}

// ObserveLog is the logging.CountingHandler hook that counts warnings and
// errors by event type.
func (c *Collector) ObserveLog(level slog.Level, eventType string) {
	if c == nil {
		return
	}
	if eventType == "" {
		eventType = "unspecified"
	}
	c.LogEvents.WithLabelValues(strings.ToLower(level.String()), eventType).Inc()
}
