package store

import (
	"context"
	"time"

	"airdesk/internal/logging"
	"airdesk/internal/ticket"
)

// Mirror receives a copy of every ticket write. Mirror failures never fail
// the primary write.
type Mirror interface {
	InsertTicket(ctx context.Context, t *ticket.Ticket) error
	UpdateTicketStatus(ctx context.Context, id string, status ticket.Status, at time.Time) error
	DeleteTicket(ctx context.Context, id string) error
	Close()
}

func (s *Store) mirrorInsert(ctx context.Context, t *ticket.Ticket) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.InsertTicket(ctx, t); err != nil {
		s.mirrorFailed("insert", t.ID, err)
	}
}

func (s *Store) mirrorStatus(ctx context.Context, id string, status ticket.Status, at time.Time) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.UpdateTicketStatus(ctx, id, status, at); err != nil {
		s.mirrorFailed("update_status", id, err)
	}
}

func (s *Store) mirrorDelete(ctx context.Context, id string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.DeleteTicket(ctx, id); err != nil {
		s.mirrorFailed("delete", id, err)
	}
}

func (s *Store) mirrorFailed(op, id string, err error) {
	logging.WarnWithContext(s.logger, "ticket mirror write failed", "ticket_mirror_failed",
		logging.String(logging.FieldTicketID, id),
		logging.String(logging.FieldErrorOperation, op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "secondary ticket store is behind the primary"),
		logging.String(logging.FieldErrorHint, "check database.postgres_url connectivity"),
	)
}
