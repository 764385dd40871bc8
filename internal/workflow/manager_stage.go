package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"airdesk/internal/logging"
	"airdesk/internal/services"
	"airdesk/internal/stage"
	"airdesk/internal/store"
)

func (m *Manager) processCall(ctx context.Context, lane *laneState, laneLogger *slog.Logger, call *store.Call) error {
	stg, ok := lane.stageForStatus(call.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(call.Status)))
		m.wait(ctx, m.pollInterval)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, call, requestID)
	stageLogger := m.stageLogger(stageCtx, laneLogger)
	if aware, ok := stg.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, call); err != nil {
		stageLogger.Error("failed to transition call to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, call)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, call *store.Call) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.Int("attempt", call.Attempts+1),
	)

	if err := stg.handler.Prepare(ctx, call); err != nil {
		m.handleStageFailure(ctx, stg, call, err)
		m.metrics.StageFinished(stg.name, "failed", time.Since(stageStart))
		m.setLastError(err)
		return err
	}

	execErr := m.executeWithHeartbeat(ctx, stg.handler, call)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		if errors.Is(execErr, context.DeadlineExceeded) {
			execErr = services.Wrap(services.ErrTimeout, stg.name, "execute",
				fmt.Sprintf("Stage exceeded %s", m.stageTimeout), execErr)
		}
		m.handleStageFailure(ctx, stg, call, execErr)
		m.metrics.StageFinished(stg.name, "failed", time.Since(stageStart))
		m.setLastError(execErr)
		return execErr
	}

	if call.Status == stg.processingStatus || call.Status == "" {
		call.Status = stg.doneStatus
	}
	call.LastHeartbeat = nil
	call.Attempts = 0
	call.ErrorMessage = ""
	if err := m.store.UpdateCall(ctx, call); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	elapsed := time.Since(stageStart)
	m.metrics.StageFinished(stg.name, "ok", elapsed)
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(call.Status)),
		logging.String(logging.FieldTicketID, call.TicketID),
		logging.Duration("stage_duration", elapsed),
	)
	m.setLastCall(call)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, call *store.Call) error {
	execCtx := ctx
	if m.stageTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, m.stageTimeout)
		defer cancel()
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, call.ID)

	execErr := handler.Execute(execCtx, call)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing store.CallStatus, call *store.Call) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}
	now := time.Now().UTC()
	call.Status = processing
	call.ErrorMessage = ""
	call.LastHeartbeat = &now
	if err := m.store.UpdateCall(ctx, call); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastCall(call)
	return nil
}
