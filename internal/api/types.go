package api

import (
	"airdesk/internal/intake"
	"airdesk/internal/summary"
	"airdesk/internal/voice"
	"airdesk/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Ticket describes a dispatch ticket in a transport-friendly format.
type Ticket struct {
	ID            string           `json:"id"`
	CallID        string           `json:"callId,omitempty"`
	FirmID        string           `json:"firmId"`
	Intake        intake.Record    `json:"intake"`
	Summary       *summary.Summary `json:"summary,omitempty"`
	Transcript    string           `json:"transcript,omitempty"`
	Priority      string           `json:"priority"`
	Status        string           `json:"status"`
	LeadStatus    string           `json:"leadStatus"`
	EmailStatus   string           `json:"emailStatus"`
	EmailAttempts int              `json:"emailAttempts"`
	LastError     string           `json:"lastError,omitempty"`
	CreatedAt     string           `json:"createdAt,omitempty"`
	UpdatedAt     string           `json:"updatedAt,omitempty"`
}

// TicketListResponse wraps a ticket listing.
type TicketListResponse struct {
	Tickets []Ticket `json:"tickets"`
}

// BoardColumn is one lane of the dispatch board.
type BoardColumn struct {
	Status  string   `json:"status"`
	Title   string   `json:"title"`
	Tickets []Ticket `json:"tickets"`
}

// Board is the dispatch board in column order.
type Board struct {
	Columns []BoardColumn `json:"columns"`
}

// StatusUpdateRequest moves a ticket to a new board column.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// StatusUpdateResponse reports the outcome of a move.
type StatusUpdateResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}

// CallSubmission is the voice host's end-of-call webhook payload.
type CallSubmission struct {
	CallerID            string        `json:"callerId"`
	Transcript          string        `json:"transcript"`
	Record              intake.Record `json:"record"`
	EmergencyRedirected bool          `json:"emergencyRedirected"`
}

// CallAccepted acknowledges a queued call.
type CallAccepted struct {
	CallID string `json:"callId"`
	Status string `json:"status"`
}

// Call describes a call moving through the workflow.
type Call struct {
	ID           string `json:"id"`
	FirmID       string `json:"firmId"`
	CallerID     string `json:"callerId,omitempty"`
	Status       string `json:"status"`
	FailedFrom   string `json:"failedFrom,omitempty"`
	TicketID     string `json:"ticketId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Attempts     int    `json:"attempts"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// CallListResponse wraps a call listing.
type CallListResponse struct {
	Calls []Call `json:"calls"`
}

// RetryResponse reports how many failed calls were requeued.
type RetryResponse struct {
	Updated int64 `json:"updated"`
}

// SessionRequest starts a live intake session.
type SessionRequest struct {
	CallerID string `json:"callerId"`
}

// TurnRequest carries one caller utterance.
type TurnRequest struct {
	Utterance string `json:"utterance"`
}

// IntakeTurn is one step of a live intake session. CallID is set once the
// session closes and the call has been queued for ticketing.
type IntakeTurn struct {
	SessionID    string         `json:"sessionId"`
	AssistantSay string         `json:"assistant_say"`
	NextState    string         `json:"next_state"`
	Updates      map[string]any `json:"updates"`
	Done         bool           `json:"done"`
	Record       intake.Record  `json:"record"`
	CallID       string         `json:"callId,omitempty"`
}

// EmailTestResponse reports a test send.
type EmailTestResponse struct {
	Sent     bool     `json:"sent"`
	ID       string   `json:"id,omitempty"`
	Attempts int      `json:"attempts"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
}

// VoiceAgentResponse is the rendered hosted voice-agent payload. Webhooks is
// omitted when voice.app_url is not configured.
type VoiceAgentResponse struct {
	Assistant map[string]any  `json:"assistant"`
	Webhooks  *voice.Webhooks `json:"webhooks,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool                  `json:"running"`
	Ready       bool                  `json:"ready"`
	CallStats   map[string]int        `json:"callStats"`
	LastError   string                `json:"lastError,omitempty"`
	LastCallID  string                `json:"lastCallId,omitempty"`
	StageHealth []StageHealth         `json:"stageHealth"`
	Lanes       []workflow.LaneStatus `json:"lanes"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Sessions string         `json:"sessions"`
	Workflow WorkflowStatus `json:"workflow"`
}
