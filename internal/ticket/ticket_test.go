package ticket

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestNewIDFormat(t *testing.T) {
	now := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^HVAC-2026-0307-\d{4}$`)
	for range 20 {
		if id := NewID(now); !pattern.MatchString(id) {
			t.Fatalf("unexpected id %q", id)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, err := ParseStatus(" dispatched "); err != nil || status != StatusDispatched {
		t.Fatalf("unexpected parse %q %v", status, err)
	}
	if _, err := ParseStatus("ARCHIVED"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if got := NormalizeStatus("bogus"); got != StatusReady {
		t.Fatalf("invalid statuses display as READY, got %s", got)
	}
}

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		changed  bool
		err      error
	}{
		{StatusReady, StatusDispatched, true, nil},
		{StatusReady, StatusCompleted, true, nil},
		{StatusDispatched, StatusDispatched, false, nil},
		{StatusCompleted, StatusReady, false, ErrInvalidTransition},
		{StatusDispatched, StatusReady, false, ErrInvalidTransition},
		{Status("legacy"), StatusDispatched, true, nil},
		{StatusReady, Status("nope"), false, ErrInvalidStatus},
	}
	for _, tc := range cases {
		changed, err := CheckTransition(tc.from, tc.to)
		if changed != tc.changed || !errors.Is(err, tc.err) {
			t.Fatalf("%s->%s: got %v %v, want %v %v", tc.from, tc.to, changed, err, tc.changed, tc.err)
		}
	}
}

func TestBuildBoardSortsUrgentThenNewest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tickets := []*Ticket{
		{ID: "old-normal", Status: StatusReady, Priority: PriorityNormal, CreatedAt: base},
		{ID: "new-normal", Status: StatusReady, Priority: PriorityNormal, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "old-urgent", Status: StatusReady, Priority: PriorityUrgent, CreatedAt: base.Add(time.Hour)},
		{ID: "weird", Status: Status("archived"), Priority: PriorityNormal, CreatedAt: base.Add(-time.Hour)},
		{ID: "done", Status: StatusCompleted, Priority: PriorityUrgent, CreatedAt: base},
	}
	board := BuildBoard(tickets, false)
	if len(board) != 3 || board[0].Title != "Ready to Dispatch" || board[1].Title != "Dispatched" || board[2].Title != "Completed" {
		t.Fatalf("unexpected columns %+v", board)
	}
	var ids []string
	for _, tk := range board[0].Tickets {
		ids = append(ids, tk.ID)
	}
	want := []string{"old-urgent", "new-normal", "old-normal", "weird"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ready column order = %v, want %v", ids, want)
		}
	}
	if len(board[1].Tickets) != 0 || board[1].Tickets == nil {
		t.Fatal("empty columns must be non-nil for JSON")
	}

	urgent := BuildBoard(tickets, true)
	if len(urgent[0].Tickets) != 1 || len(urgent[2].Tickets) != 1 {
		t.Fatalf("urgent filter not applied: %+v", urgent)
	}
}
