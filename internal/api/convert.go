package api

import (
	"slices"
	"time"

	"airdesk/internal/stage"
	"airdesk/internal/store"
	"airdesk/internal/summary"
	"airdesk/internal/ticket"
	"airdesk/internal/workflow"
)

// FromTicket converts a ticket into its transport representation.
func FromTicket(t *ticket.Ticket) Ticket {
	if t == nil {
		return Ticket{}
	}
	dto := Ticket{
		ID:            t.ID,
		CallID:        t.CallID,
		FirmID:        t.FirmID,
		Intake:        t.Intake,
		Transcript:    t.Transcript,
		Priority:      string(t.Priority),
		Status:        string(ticket.NormalizeStatus(string(t.Status))),
		LeadStatus:    string(t.LeadStatus),
		EmailStatus:   string(t.EmailStatus),
		EmailAttempts: t.EmailAttempts,
		LastError:     t.LastError,
		CreatedAt:     FormatTime(t.CreatedAt),
		UpdatedAt:     FormatTime(t.UpdatedAt),
	}
	if parsed, ok := summary.Parse(t.SummaryJSON); ok {
		dto.Summary = &parsed
	}
	return dto
}

// FromTickets converts a slice of tickets, never returning nil.
func FromTickets(tickets []*ticket.Ticket) []Ticket {
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t == nil {
			continue
		}
		out = append(out, FromTicket(t))
	}
	return out
}

// FromColumns converts board columns.
func FromColumns(columns []ticket.Column) Board {
	board := Board{Columns: make([]BoardColumn, 0, len(columns))}
	for _, col := range columns {
		board.Columns = append(board.Columns, BoardColumn{
			Status:  string(col.Status),
			Title:   col.Title,
			Tickets: FromTickets(col.Tickets),
		})
	}
	return board
}

// FromCall converts a workflow call.
func FromCall(call *store.Call) Call {
	if call == nil {
		return Call{}
	}
	return Call{
		ID:           call.ID,
		FirmID:       call.FirmID,
		CallerID:     call.CallerID,
		Status:       string(call.Status),
		FailedFrom:   string(call.FailedFrom),
		TicketID:     call.TicketID,
		ErrorMessage: call.ErrorMessage,
		Attempts:     call.Attempts,
		CreatedAt:    FormatTime(call.CreatedAt),
		UpdatedAt:    FormatTime(call.UpdatedAt),
	}
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:     summary.Running,
		Ready:       summary.Ready(),
		CallStats:   MergeCallStats(summary.CallStats),
		LastError:   summary.LastError,
		LastCallID:  summary.LastCallID,
		StageHealth: StageHealthSlice(summary.StageHealth),
		Lanes:       summary.Lanes,
	}
}

// MergeCallStats produces a string-keyed representation of call stats with
// every status present.
func MergeCallStats(stats map[store.CallStatus]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range store.AllCallStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// StageHealthSlice orders stage health by name.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, State: h.State(), Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
