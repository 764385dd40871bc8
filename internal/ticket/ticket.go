package ticket

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"airdesk/internal/intake"
)

var (
	// ErrNotFound indicates the ticket does not exist.
	ErrNotFound = errors.New("ticket not found")
	// ErrForbidden indicates the ticket belongs to another firm.
	ErrForbidden = errors.New("ticket belongs to another firm")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status. Must be READY, DISPATCHED, or COMPLETED")
	// ErrInvalidTransition indicates a backward status move.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status is the dispatch board column of a ticket.
type Status string

const (
	StatusReady      Status = "READY"
	StatusDispatched Status = "DISPATCHED"
	StatusCompleted  Status = "COMPLETED"
)

var allStatuses = []Status{StatusReady, StatusDispatched, StatusCompleted}

var columnTitles = map[Status]string{
	StatusReady:      "Ready to Dispatch",
	StatusDispatched: "Dispatched",
	StatusCompleted:  "Completed",
}

// AllStatuses returns the board columns in order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a request value into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

// NormalizeStatus maps stored values onto a known status for display;
// anything unrecognized shows as READY.
func NormalizeStatus(value string) Status {
	status, err := ParseStatus(value)
	if err != nil {
		return StatusReady
	}
	return status
}

// Title returns the column heading for the status.
func (s Status) Title() string {
	return columnTitles[s]
}

func (s Status) rank() int {
	for i, status := range allStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

// CheckTransition reports whether moving from one status to another changes
// anything. Backward moves fail with ErrInvalidTransition.
func CheckTransition(from, to Status) (bool, error) {
	if to.rank() < 0 {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	from = NormalizeStatus(string(from))
	if from == to {
		return false, nil
	}
	if to.rank() < from.rank() {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return true, nil
}

// Priority marks tickets that need immediate dispatch.
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityNormal Priority = "NORMAL"
)

// LeadStatus records whether the required caller details were captured.
type LeadStatus string

const (
	LeadNew        LeadStatus = "NEW"
	LeadIncomplete LeadStatus = "INCOMPLETE"
)

// EmailStatus tracks delivery of the dispatch e-mail.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// Ticket is a dispatchable service request.
type Ticket struct {
	ID            string        `json:"id"`
	CallID        string        `json:"callId,omitempty"`
	FirmID        string        `json:"firmId"`
	Intake        intake.Record `json:"intake"`
	SummaryJSON   string        `json:"summary,omitempty"`
	Transcript    string        `json:"transcript,omitempty"`
	Priority      Priority      `json:"priority"`
	Status        Status        `json:"status"`
	LeadStatus    LeadStatus    `json:"leadStatus"`
	EmailStatus   EmailStatus   `json:"emailStatus"`
	EmailAttempts int           `json:"emailAttempts"`
	LastError     string        `json:"lastError,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsUrgent reports whether the ticket has URGENT priority.
func (t Ticket) IsUrgent() bool {
	return t.Priority == PriorityUrgent
}

// NewID returns an identifier of the form HVAC-YYYY-MMDD-#### where the
// suffix is random.
func NewID(now time.Time) string {
	return fmt.Sprintf("HVAC-%04d-%02d%02d-%04d", now.Year(), int(now.Month()), now.Day(), rand.IntN(10000))
}

// Filter narrows ticket listings.
type Filter struct {
	FirmID     string
	Statuses   []Status
	UrgentOnly bool
	Limit      int
}

// Sort orders tickets URGENT first, then newest first.
func Sort(tickets []*Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if a.IsUrgent() != b.IsUrgent() {
			return a.IsUrgent()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Column is one board lane.
type Column struct {
	Status  Status    `json:"status"`
	Title   string    `json:"title"`
	Tickets []*Ticket `json:"tickets"`
}

// BuildBoard groups tickets into the three board columns, sorted within each
// column. Tickets with unrecognized statuses land in READY.
func BuildBoard(tickets []*Ticket, urgentOnly bool) []Column {
	columns := make([]Column, len(allStatuses))
	index := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		columns[i] = Column{Status: status, Title: status.Title(), Tickets: []*Ticket{}}
		index[status] = i
	}
	for _, t := range tickets {
		if t == nil || (urgentOnly && !t.IsUrgent()) {
			continue
		}
		pos := index[NormalizeStatus(string(t.Status))]
		columns[pos].Tickets = append(columns[pos].Tickets, t)
	}
	for i := range columns {
		Sort(columns[i].Tickets)
	}
	return columns
}
