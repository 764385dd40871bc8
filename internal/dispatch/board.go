package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"airdesk/internal/ticket"
)

// ErrUnknownTicket is returned when a move names a ticket not on the board.
var ErrUnknownTicket = errors.New("ticket not on board")

// Persister stores a status change.
type Persister interface {
	UpdateTicketStatus(ctx context.Context, firmID, id string, status ticket.Status) (bool, error)
}

// Loader lists tickets for a firm.
type Loader interface {
	ListTickets(ctx context.Context, filter ticket.Filter) ([]*ticket.Ticket, error)
}

// Board is a firm's ticket columns.
type Board struct {
	mu         sync.Mutex
	firmID     string
	urgentOnly bool
	columns    []ticket.Column
	persister  Persister
}

// New builds a board from already loaded tickets.
func New(firmID string, tickets []*ticket.Ticket, persister Persister, urgentOnly bool) *Board {
	return &Board{
		firmID:     firmID,
		urgentOnly: urgentOnly,
		columns:    ticket.BuildBoard(tickets, urgentOnly),
		persister:  persister,
	}
}

// Load reads the firm's tickets and builds a board that persists moves
// through persister.
func Load(ctx context.Context, loader Loader, persister Persister, firmID string, urgentOnly bool) (*Board, error) {
	tickets, err := loader.ListTickets(ctx, ticket.Filter{FirmID: firmID, UrgentOnly: urgentOnly})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return New(firmID, tickets, persister, urgentOnly), nil
}

// Columns returns a snapshot of the board.
func (b *Board) Columns() []ticket.Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ticket.Column, len(b.columns))
	for i, col := range b.columns {
		out[i] = ticket.Column{
			Status:  col.Status,
			Title:   col.Title,
			Tickets: append([]*ticket.Ticket{}, col.Tickets...),
		}
	}
	return out
}

// Find returns the ticket with id and its column status.
func (b *Board) Find(id string) (*ticket.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col, pos := b.locate(id)
	if col < 0 {
		return nil, false
	}
	return b.columns[col].Tickets[pos], true
}

// Move changes a ticket's status. The board updates immediately; if the
// persister fails the ticket is restored to its previous column and position
// and the error is returned. Moving to the current status is a no-op.
func (b *Board) Move(ctx context.Context, id string, to ticket.Status) error {
	b.mu.Lock()
	fromCol, fromPos := b.locate(id)
	if fromCol < 0 {
		b.mu.Unlock()
		return fmt.Errorf("move %s: %w", id, ErrUnknownTicket)
	}
	t := b.columns[fromCol].Tickets[fromPos]
	previous := t.Status
	if ticket.NormalizeStatus(string(previous)) == to {
		b.mu.Unlock()
		return nil
	}
	toCol := b.columnIndex(to)
	if toCol < 0 {
		b.mu.Unlock()
		return fmt.Errorf("move %s: %w", id, ticket.ErrInvalidStatus)
	}

	b.remove(fromCol, fromPos)
	t.Status = to
	b.columns[toCol].Tickets = append(b.columns[toCol].Tickets, t)
	ticket.Sort(b.columns[toCol].Tickets)
	b.mu.Unlock()

	if b.persister == nil {
		return nil
	}
	if _, err := b.persister.UpdateTicketStatus(ctx, b.firmID, id, to); err != nil {
		b.mu.Lock()
		if col, pos := b.locate(id); col >= 0 {
			b.remove(col, pos)
		}
		t.Status = previous
		b.columns[fromCol].Tickets = append(b.columns[fromCol].Tickets, t)
		ticket.Sort(b.columns[fromCol].Tickets)
		b.mu.Unlock()
		return err
	}
	return nil
}

func (b *Board) locate(id string) (int, int) {
	for c, col := range b.columns {
		for p, t := range col.Tickets {
			if t.ID == id {
				return c, p
			}
		}
	}
	return -1, -1
}

func (b *Board) columnIndex(status ticket.Status) int {
	for i, col := range b.columns {
		if col.Status == status {
			return i
		}
	}
	return -1
}

func (b *Board) remove(col, pos int) {
	tickets := b.columns[col].Tickets
	b.columns[col].Tickets = append(tickets[:pos:pos], tickets[pos+1:]...)
}
