package workflow

import (
	"log/slog"

	"airdesk/internal/stage"
	"airdesk/internal/store"
)

// StageSet bundles the concrete handlers the manager orchestrates.
type StageSet struct {
	Extract stage.Handler
	Ticket  stage.Handler
	Notify  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      store.CallStatus
	processingStatus store.CallStatus
	doneStatus       store.CallStatus
}

type laneKind string

const (
	laneIntake   laneKind = "intake"
	laneDispatch laneKind = "dispatch"
)

type laneState struct {
	kind               laneKind
	name               string
	stages             []pipelineStage
	statusOrder        []store.CallStatus
	stageByStart       map[store.CallStatus]pipelineStage
	processingStatuses []store.CallStatus
	logger             *slog.Logger
	runReclaimer       bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[store.CallStatus]pipelineStage, len(l.stages))
	l.statusOrder = make([]store.CallStatus, 0, len(l.stages))
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus != "" {
			l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
		}
	}
}

func (l *laneState) stageForStatus(status store.CallStatus) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}

// loggerAware handlers receive the per-call logger before each run.
type loggerAware interface {
	SetLogger(*slog.Logger)
}
