package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"airdesk/internal/logging"
	"airdesk/internal/services"
	"airdesk/internal/store"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	name := lane.name
	if name == "" {
		name = string(lane.kind)
	}
	return m.baseLogger().With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", name)),
		logging.String("lane", name),
	)
}

// stageLogger tags the lane logger with the call context and applies
// logging.component_levels overrides keyed by stage name.
func (m *Manager) stageLogger(ctx context.Context, laneLogger *slog.Logger) *slog.Logger {
	base := laneLogger
	if base == nil {
		base = m.baseLogger()
	}
	logger := logging.WithContext(ctx, base)
	if m.cfg != nil {
		if stageName, ok := services.StageFromContext(ctx); ok {
			if override := stageOverrideLevel(m.cfg.Logging.ComponentLevels, stageName); override != "" {
				logger = logging.WithLevelOverride(logger, logging.ParseLevel(override))
			}
		}
	}
	return logger
}

func stageOverrideLevel(overrides map[string]string, stageName string) string {
	if len(overrides) == 0 {
		return ""
	}
	stageName = strings.ToLower(strings.TrimSpace(stageName))
	if stageName == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == stageName {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func withStageContext(ctx context.Context, stageName string, call *store.Call, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if call != nil {
		ctx = services.WithCallID(ctx, call.ID)
		ctx = services.WithFirmID(ctx, call.FirmID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
