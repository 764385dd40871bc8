package workflow

import (
	"context"
	"errors"
	"fmt"

	"airdesk/internal/logging"
	"airdesk/internal/notifications"
	"airdesk/internal/store"
)

func (m *Manager) notifyStageError(ctx context.Context, stageName string, call *store.Call, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, m.baseLogger().With(logging.String(logging.FieldComponent, "workflow-manager")))
	contextLabel := fmt.Sprintf("%s (call %s)", stageName, shortCallID(call.ID))
	if err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"error":   stageErr,
		"context": contextLabel,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send error notification")
		} else {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
}

// refreshCallStats publishes per-status call counts to the metrics gauge.
func (m *Manager) refreshCallStats(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	stats, err := m.store.CallStats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.baseLogger().Debug("call stats unavailable for metrics", logging.Error(err))
		}
		return
	}
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	m.metrics.SetCallCounts(counts)
}

func shortCallID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
