package mirror

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"airdesk/internal/intake"
	"airdesk/internal/ticket"
)

func newTestMirror(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("AIRDESK_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("AIRDESK_TEST_POSTGRES_URL not set")
	}
	m, err := NewPostgres(context.Background(), Config{URL: url, MaxConns: 2})
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestNewPostgresRejectsBadURL(t *testing.T) {
	if _, err := NewPostgres(context.Background(), Config{URL: "://not-a-url"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPostgresMirrorLifecycle(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	now := time.Now().UTC()
	firmID := "mirror-test-" + now.Format("150405.000000")
	tk := &ticket.Ticket{
		ID:         "HVAC-MIRROR-" + now.Format("150405.000000"),
		FirmID:     firmID,
		Intake:     intake.Record{CallerName: "Dana Smith", IssueCategory: "No heat"},
		Priority:   ticket.PriorityUrgent,
		Status:     ticket.StatusReady,
		LeadStatus: ticket.LeadNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.Cleanup(func() { _ = m.DeleteTicket(ctx, tk.ID) })

	if err := m.InsertTicket(ctx, tk); err != nil {
		t.Fatalf("InsertTicket: %v", err)
	}
	if err := m.UpdateTicketStatus(ctx, tk.ID, ticket.StatusDispatched, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateTicketStatus: %v", err)
	}
	counts, err := m.CountByStatus(ctx, firmID)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[ticket.StatusDispatched] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := m.UpdateTicketStatus(ctx, "missing", ticket.StatusCompleted, now); !errors.Is(err, ticket.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
