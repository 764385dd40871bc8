package api

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"airdesk/internal/classify"
	"airdesk/internal/intake"
	"airdesk/internal/stage"
	"airdesk/internal/store"
	"airdesk/internal/summary"
	"airdesk/internal/ticket"
	"airdesk/internal/workflow"
)

func TestFromTicketParsesSummary(t *testing.T) {
	created := time.Date(2026, 1, 15, 14, 30, 0, 0, time.FixedZone("CST", -6*3600))
	record := intake.Record{IssueCategory: "No heat", City: "Chicago"}
	tk := &ticket.Ticket{
		ID:          "HVAC-2026-0115-0042",
		FirmID:      "firm-1",
		Intake:      record,
		SummaryJSON: summary.Fallback(record, classify.LevelHigh).JSON(),
		Priority:    ticket.PriorityUrgent,
		Status:      "bogus",
		LeadStatus:  ticket.LeadIncomplete,
		EmailStatus: ticket.EmailPending,
		CreatedAt:   created,
	}

	dto := FromTicket(tk)
	if dto.Status != string(ticket.StatusReady) {
		t.Fatalf("expected unknown status to display as READY, got %q", dto.Status)
	}
	if dto.CreatedAt != "2026-01-15T20:30:00.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("expected empty updatedAt, got %q", dto.UpdatedAt)
	}
	if dto.Summary == nil || dto.Summary.UrgencyLevel != classify.LevelHigh {
		t.Fatalf("expected parsed summary, got %+v", dto.Summary)
	}
}

func TestFromColumnsKeepsOrder(t *testing.T) {
	columns := ticket.BuildBoard([]*ticket.Ticket{
		{ID: "a", Status: ticket.StatusDispatched, Priority: ticket.PriorityNormal},
	}, false)
	board := FromColumns(columns)
	var got []string
	for _, col := range board.Columns {
		got = append(got, col.Status)
	}
	want := []string{"READY", "DISPATCHED", "COMPLETED"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("column order mismatch (-want +got):\n%s", diff)
	}
	if len(board.Columns[0].Tickets) != 0 || board.Columns[0].Tickets == nil {
		t.Fatal("empty columns must encode as [] not null")
	}
	if board.Columns[1].Tickets[0].ID != "a" {
		t.Fatalf("unexpected dispatched column: %+v", board.Columns[1])
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:    true,
		LastCallID: "call-1",
		CallStats:  map[store.CallStatus]int{store.CallFailed: 2},
		StageHealth: map[string]stage.Health{
			"ticket":  stage.Healthy("ticket"),
			"extract": stage.Unhealthy("extract", "no model"),
		},
	}
	wf := FromStatusSummary(summary)
	if wf.CallStats["failed"] != 2 || wf.CallStats["received"] != 0 {
		t.Fatalf("unexpected stats: %v", wf.CallStats)
	}
	if len(wf.CallStats) != len(store.AllCallStatuses()) {
		t.Fatalf("expected every status present, got %v", wf.CallStats)
	}
	want := []StageHealth{
		{Name: "extract", Ready: false, State: "not ready", Detail: "no model"},
		{Name: "ticket", Ready: true, State: "ready"},
	}
	if diff := cmp.Diff(want, wf.StageHealth); diff != "" {
		t.Fatalf("stage health mismatch (-want +got):\n%s", diff)
	}
	if wf.Ready {
		t.Fatal("workflow with an unhealthy stage should not be ready")
	}
}
