package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"airdesk/internal/logging"
	"airdesk/internal/metrics"
	"airdesk/internal/store"
)

// HeartbeatMonitor keeps claimed calls alive and hands calls abandoned by a
// crashed or hung stage back to their lane.
type HeartbeatMonitor struct {
	store    *store.Store
	logger   *slog.Logger
	metrics  *metrics.Collector
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor. A non-positive timeout disables
// reclamation.
func NewHeartbeatMonitor(st *store.Store, logger *slog.Logger, collector *metrics.Collector, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:    st,
		logger:   logger,
		metrics:  collector,
		interval: interval,
		timeout:  timeout,
	}
}

// ReclaimStaleCalls resets calls whose heartbeat is older than the timeout to
// the start status of their stage and returns how many moved.
func (h *HeartbeatMonitor) ReclaimStaleCalls(ctx context.Context, logger *slog.Logger, lane string) (int64, error) {
	if h.timeout <= 0 {
		return 0, nil
	}
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, time.Now().Add(-h.timeout))
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		h.metrics.Reclaimed(lane, reclaimed)
		logging.WarnWithContext(logger, "reclaimed calls from a stalled stage", "calls_reclaimed",
			logging.Int64("count", reclaimed),
			logging.String("lane", lane),
			logging.Duration("heartbeat_timeout", h.timeout),
			logging.String(logging.FieldErrorHint, "calls will be retried; check earlier logs for the stage that stopped"),
		)
	}
	return reclaimed, nil
}

// StartLoop refreshes the heartbeat for callID until ctx is cancelled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, callID string) {
	defer wg.Done()
	if h.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.store.UpdateHeartbeat(ctx, callID)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				logger.Debug("call finished, heartbeat stopped")
			default:
				logger.Warn("heartbeat update failed", logging.Error(err), logging.String(logging.FieldCallID, callID))
			}
		}
	}
}
