package workflow

import (
	"context"

	"airdesk/internal/logging"
	"airdesk/internal/stage"
	"airdesk/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                     `json:"running"`
	LastError   string                   `json:"lastError,omitempty"`
	LastCall    *store.Call              `json:"-"`
	LastCallID  string                   `json:"lastCallId,omitempty"`
	CallStats   map[store.CallStatus]int `json:"callStats"`
	StageHealth map[string]stage.Health  `json:"stageHealth"`
	Lanes       []LaneStatus             `json:"lanes"`
}

// LaneStatus counts the calls a lane still has to work through.
type LaneStatus struct {
	Name string `json:"name"`
	// Waiting counts calls sitting at one of the lane's start statuses.
	Waiting int `json:"waiting"`
	// InFlight counts calls a stage has claimed but not finished.
	InFlight int      `json:"inFlight"`
	Stages   []string `json:"stages"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastCall := m.lastCall
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	m.mu.RUnlock()

	stats, err := m.store.CallStats(ctx)
	if err != nil {
		m.baseLogger().Warn("failed to read call stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		CallStats:   stats,
		StageHealth: make(map[string]stage.Health),
	}
	for _, lane := range lanes {
		laneStatus := LaneStatus{Name: lane.name}
		for _, stg := range lane.stages {
			laneStatus.Stages = append(laneStatus.Stages, stg.name)
			laneStatus.Waiting += stats[stg.startStatus]
			laneStatus.InFlight += stats[stg.processingStatus]
			if stg.handler != nil {
				summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
			}
		}
		summary.Lanes = append(summary.Lanes, laneStatus)
	}

	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastCall != nil {
		snapshot := *lastCall
		summary.LastCall = &snapshot
		summary.LastCallID = snapshot.ID
	}
	return summary
}

// Ready reports whether every configured stage passed its health check.
func (s StatusSummary) Ready() bool {
	for _, health := range s.StageHealth {
		if !health.Ready {
			return false
		}
	}
	return true
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastCall(call *store.Call) {
	m.mu.Lock()
	if call != nil {
		snapshot := *call
		m.lastCall = &snapshot
	} else {
		m.lastCall = nil
	}
	m.mu.Unlock()
}
