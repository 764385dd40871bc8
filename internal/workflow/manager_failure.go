package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"airdesk/internal/logging"
	"airdesk/internal/services"
	"airdesk/internal/store"
)

// handleStageFailure either returns the call to the start of the stage for a
// later retry or marks it failed.
func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, call *store.Call, stageErr error) {
	logger := logging.WithContext(ctx, m.baseLogger()).With(logging.String(logging.FieldComponent, "workflow-manager"))

	message := classifyStageFailure(stg.name, stageErr)
	details := services.Details(stageErr)
	call.LastHeartbeat = nil
	call.Attempts++

	retry := services.Retryable(stageErr) && call.Attempts < maxTransientAttempts
	if retry {
		call.Status = stg.startStatus
		call.ErrorMessage = message
	} else {
		call.Status = store.CallFailed
		call.FailedFrom = stg.startStatus
		call.ErrorMessage = message
	}

	attrs := []logging.Attr{
		logging.String("resolved_status", string(call.Status)),
		logging.String("error_message", message),
		logging.Int("attempt", call.Attempts),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	if retry {
		attrs = append(attrs, logging.String(logging.FieldImpact, "call will be retried on the next poll"))
		logging.WarnWithContext(logger, "stage failed; will retry", "stage_retry", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
		logger.Error("stage failed", logging.Args(attrs...)...)
	}

	if err := m.store.UpdateCall(ctx, call); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastCall(call)

	if retry {
		m.wait(ctx, m.retryDelay)
		return
	}
	m.notifyStageError(ctx, stg.name, call, stageErr)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}
