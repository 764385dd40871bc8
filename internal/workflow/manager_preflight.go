package workflow

import (
	"context"

	"airdesk/internal/logging"
)

// logStageHealth reports each stage's readiness at startup. Degraded and
// unready stages still run; they fall back or fail calls with a descriptive error.
func (m *Manager) logStageHealth(ctx context.Context) {
	logger := m.baseLogger().With(logging.String(logging.FieldComponent, "workflow-manager"))
	m.mu.RLock()
	var stages []pipelineStage
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			stages = append(stages, lane.stages...)
		}
	}
	m.mu.RUnlock()

	for _, stg := range stages {
		health := stg.handler.HealthCheck(ctx)
		switch {
		case health.Ready && !health.Degraded:
			logger.Info("stage ready",
				logging.String(logging.FieldStage, stg.name),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		case health.Ready:
			logging.WarnWithContext(logger, "stage running in fallback mode", "preflight_degraded",
				logging.String(logging.FieldStage, stg.name),
				logging.String("detail", health.Detail),
				logging.String(logging.FieldImpact, "calls still advance with less detail"),
				logging.String(logging.FieldErrorHint, "configure the missing service for full results"),
			)
		default:
			logging.WarnWithContext(logger, "stage not ready", "preflight_failed",
				logging.String(logging.FieldStage, stg.name),
				logging.String("detail", health.Detail),
				logging.String(logging.FieldImpact, "calls reaching this stage will fail"),
				logging.String(logging.FieldErrorHint, "fix the reported setting and restart the daemon"),
			)
		}
	}
}
