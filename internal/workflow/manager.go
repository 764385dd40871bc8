package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"airdesk/internal/config"
	"airdesk/internal/metrics"
	"airdesk/internal/notifications"
	"airdesk/internal/store"
)

const (
	defaultHeartbeatInterval = 5 * time.Second
	// maxTransientAttempts bounds retries of a single stage before the call
	// is failed.
	maxTransientAttempts = 5
)

// Manager coordinates call processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration
	stageTimeout time.Duration
	notifier     notifications.Service
	metrics      *metrics.Collector

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastCall *store.Call
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the ntfy service built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithMetrics records stage runs and call counts.
func WithMetrics(collector *metrics.Collector) ManagerOption {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// WithPollInterval overrides workflow.poll_interval, for tests.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
			m.retryDelay = d
		}
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	stageTimeout := time.Duration(cfg.Workflow.StageTimeout) * time.Second
	m := &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		notifier:     notifications.NewService(cfg),
		pollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		stageTimeout: stageTimeout,
		lanes:        make(map[laneKind]*laneState),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Second
	}
	if m.retryDelay <= 0 {
		m.retryDelay = m.pollInterval
	}
	m.heartbeat = NewHeartbeatMonitor(st, logger, m.metrics, defaultHeartbeatInterval, reclaimTimeout(stageTimeout))
	return m
}

// reclaimTimeout is how long a processing call may go without a heartbeat
// before another poll takes it back.
func reclaimTimeout(stageTimeout time.Duration) time.Duration {
	if stageTimeout <= 0 {
		return 0
	}
	return 2 * stageTimeout
}
