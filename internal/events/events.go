package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"airdesk/internal/ticket"
)

// DefaultSubjectPrefix is used when events.subject_prefix is empty.
const DefaultSubjectPrefix = "airdesk"

// Kind names an event.
type Kind string

const (
	TicketCreated Kind = "ticket.created"
	TicketStatus  Kind = "ticket.status"
	TicketDeleted Kind = "ticket.deleted"
)

// TicketEvent is the JSON body of every ticket event.
type TicketEvent struct {
	Kind       Kind          `json:"kind"`
	TicketID   string        `json:"ticketId"`
	FirmID     string        `json:"firmId"`
	CallID     string        `json:"callId,omitempty"`
	Priority   string        `json:"priority,omitempty"`
	Status     ticket.Status `json:"status,omitempty"`
	LeadStatus string        `json:"leadStatus,omitempty"`
	At         time.Time     `json:"at"`
}

// FromTicket builds an event for t.
func FromTicket(kind Kind, t *ticket.Ticket, at time.Time) TicketEvent {
	return TicketEvent{
		Kind:       kind,
		TicketID:   t.ID,
		FirmID:     t.FirmID,
		CallID:     t.CallID,
		Priority:   string(t.Priority),
		Status:     t.Status,
		LeadStatus: string(t.LeadStatus),
		At:         at.UTC(),
	}
}

// Publisher emits ticket events.
type Publisher interface {
	Publish(ctx context.Context, event TicketEvent) error
	Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, TicketEvent) error { return nil }
func (Noop) Close()                                     {}

// NATS publishes to a NATS server.
type NATS struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials NATS. The connection reconnects on its own after drops.
func Connect(url, prefix string) (*NATS, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("airdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return &NATS{conn: conn, prefix: normalizePrefix(prefix)}, nil
}

// Subject returns the subject an event kind is published on.
func (n *NATS) Subject(kind Kind) string {
	return Subject(n.prefix, kind)
}

// Subject joins prefix and kind.
func Subject(prefix string, kind Kind) string {
	return normalizePrefix(prefix) + "." + string(kind)
}

// Publish encodes and publishes the event.
func (n *NATS) Publish(ctx context.Context, event TicketEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.conn.Publish(n.Subject(event.Kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() {
	if n == nil || n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return DefaultSubjectPrefix
	}
	return prefix
}
