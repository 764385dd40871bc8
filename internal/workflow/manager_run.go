package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"airdesk/internal/logging"
	"airdesk/internal/store"
)

// Start begins background processing. Calls left mid-stage by a previous
// process are returned to the start of their stage first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		return err
	} else if reset > 0 {
		m.baseLogger().Info("reset calls interrupted by previous shutdown",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "calls_reset"),
		)
	}
	m.logStageHealth(ctx)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = m.baseLogger()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane.runReclaimer {
			if _, err := m.heartbeat.ReclaimStaleCalls(ctx, logger, lane.name); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(logger, "reclaim stale processing failed; stuck calls may remain", "heartbeat_reclaim_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check database access"),
				)
			}
		}

		call, err := m.nextCallForLane(ctx, lane)
		if err != nil {
			m.handleNextCallError(ctx, logger, err)
			continue
		}
		if call == nil {
			m.refreshCallStats(ctx)
			m.wait(ctx, m.pollInterval)
			continue
		}

		if err := m.processCall(ctx, lane, logger, call); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) nextCallForLane(ctx context.Context, lane *laneState) (*store.Call, error) {
	if lane == nil || len(lane.statusOrder) == 0 {
		return nil, nil
	}
	return m.store.NextForStatuses(ctx, lane.statusOrder...)
}

func (m *Manager) handleNextCallError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next call",
		logging.Error(err),
		logging.String(logging.FieldEventType, "call_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) baseLogger() *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger
}
