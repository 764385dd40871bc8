package workflow

import "airdesk/internal/store"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	intake := &laneState{kind: laneIntake, name: "intake"}
	dispatch := &laneState{kind: laneDispatch, name: "dispatch"}

	if set.Extract != nil {
		intake.stages = append(intake.stages, pipelineStage{
			name:             "extract",
			handler:          set.Extract,
			startStatus:      store.CallReceived,
			processingStatus: store.CallExtracting,
			doneStatus:       store.CallExtracted,
		})
	}
	if set.Ticket != nil {
		intake.stages = append(intake.stages, pipelineStage{
			name:             "ticket",
			handler:          set.Ticket,
			startStatus:      store.CallExtracted,
			processingStatus: store.CallTicketing,
			doneStatus:       store.CallTicketed,
		})
	}
	if set.Notify != nil {
		dispatch.stages = append(dispatch.stages, pipelineStage{
			name:             "notify",
			handler:          set.Notify,
			startStatus:      store.CallTicketed,
			processingStatus: store.CallNotifying,
			doneStatus:       store.CallNotified,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)
	for _, lane := range []*laneState{intake, dispatch} {
		if len(lane.stages) == 0 {
			continue
		}
		lane.finalize()
		lane.runReclaimer = len(lane.processingStatuses) > 0
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
