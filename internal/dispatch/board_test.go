package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"airdesk/internal/ticket"
)

type fakePersister struct {
	err   error
	calls []ticket.Status
}

func (f *fakePersister) UpdateTicketStatus(_ context.Context, _ string, _ string, status ticket.Status) (bool, error) {
	f.calls = append(f.calls, status)
	return f.err == nil, f.err
}

func boardTickets() []*ticket.Ticket {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*ticket.Ticket{
		{ID: "a", Status: ticket.StatusReady, Priority: ticket.PriorityNormal, CreatedAt: base.Add(3 * time.Minute)},
		{ID: "b", Status: ticket.StatusReady, Priority: ticket.PriorityUrgent, CreatedAt: base},
		{ID: "c", Status: ticket.StatusReady, Priority: ticket.PriorityNormal, CreatedAt: base.Add(time.Minute)},
		{ID: "d", Status: ticket.StatusDispatched, Priority: ticket.PriorityNormal, CreatedAt: base},
	}
}

func columnIDs(cols []ticket.Column) map[ticket.Status][]string {
	out := map[ticket.Status][]string{}
	for _, col := range cols {
		ids := []string{}
		for _, t := range col.Tickets {
			ids = append(ids, t.ID)
		}
		out[col.Status] = ids
	}
	return out
}

func TestBoardSortsUrgentFirst(t *testing.T) {
	b := New("firm", boardTickets(), nil, false)
	want := map[ticket.Status][]string{
		ticket.StatusReady:      {"b", "a", "c"},
		ticket.StatusDispatched: {"d"},
		ticket.StatusCompleted:  {},
	}
	if diff := cmp.Diff(want, columnIDs(b.Columns())); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}

	urgent := New("firm", boardTickets(), nil, true)
	if got := columnIDs(urgent.Columns())[ticket.StatusReady]; !cmp.Equal(got, []string{"b"}) {
		t.Fatalf("urgent filter = %v", got)
	}
}

func TestMovePersists(t *testing.T) {
	p := &fakePersister{}
	b := New("firm", boardTickets(), p, false)

	if err := b.Move(context.Background(), "a", ticket.StatusDispatched); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	got := columnIDs(b.Columns())
	if !cmp.Equal(got[ticket.StatusDispatched], []string{"a", "d"}) || !cmp.Equal(got[ticket.StatusReady], []string{"b", "c"}) {
		t.Fatalf("unexpected board after move: %v", got)
	}
	if diff := cmp.Diff([]ticket.Status{ticket.StatusDispatched}, p.calls); diff != "" {
		t.Fatalf("persister calls (-want +got):\n%s", diff)
	}
}

func TestMoveSameStatusIsNoop(t *testing.T) {
	p := &fakePersister{}
	b := New("firm", boardTickets(), p, false)
	if err := b.Move(context.Background(), "d", ticket.StatusDispatched); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if len(p.calls) != 0 {
		t.Fatalf("expected no persistence, got %v", p.calls)
	}
}

func TestMoveRollsBackOnError(t *testing.T) {
	p := &fakePersister{err: ticket.ErrInvalidTransition}
	b := New("firm", boardTickets(), p, false)
	before := columnIDs(b.Columns())

	err := b.Move(context.Background(), "a", ticket.StatusCompleted)
	if !errors.Is(err, ticket.ErrInvalidTransition) {
		t.Fatalf("expected persister error, got %v", err)
	}
	if diff := cmp.Diff(before, columnIDs(b.Columns())); diff != "" {
		t.Fatalf("board not restored (-want +got):\n%s", diff)
	}
	if tk, ok := b.Find("a"); !ok || tk.Status != ticket.StatusReady {
		t.Fatalf("status not restored: %+v", tk)
	}
}

// gatedPersister holds the save for one ticket until release is closed, then
// fails it.
type gatedPersister struct {
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPersister) UpdateTicketStatus(_ context.Context, _ string, id string, _ ticket.Status) (bool, error) {
	if id != g.gated {
		return true, nil
	}
	close(g.entered)
	<-g.release
	return false, errors.New("database is locked")
}

func TestMoveRollbackResortsAfterConcurrentMove(t *testing.T) {
	p := &gatedPersister{gated: "a", entered: make(chan struct{}), release: make(chan struct{})}
	b := New("firm", boardTickets(), p, false)

	done := make(chan error, 1)
	go func() {
		done <- b.Move(context.Background(), "a", ticket.StatusCompleted)
	}()
	<-p.entered
	if err := b.Move(context.Background(), "b", ticket.StatusDispatched); err != nil {
		t.Fatalf("concurrent Move returned error: %v", err)
	}
	close(p.release)
	if err := <-done; err == nil {
		t.Fatal("expected gated move to fail")
	}

	want := map[ticket.Status][]string{
		ticket.StatusReady:      {"a", "c"},
		ticket.StatusDispatched: {"b", "d"},
		ticket.StatusCompleted:  {},
	}
	if diff := cmp.Diff(want, columnIDs(b.Columns())); diff != "" {
		t.Fatalf("board after rollback (-want +got):\n%s", diff)
	}
}

func TestMoveUnknownTicket(t *testing.T) {
	b := New("firm", boardTickets(), nil, false)
	if err := b.Move(context.Background(), "zzz", ticket.StatusCompleted); !errors.Is(err, ErrUnknownTicket) {
		t.Fatalf("expected ErrUnknownTicket, got %v", err)
	}
}
