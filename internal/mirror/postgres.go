// Package mirror copies ticket writes into Postgres for reporting. SQLite
// stays authoritative; the mirror is optional and best effort.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"airdesk/internal/ticket"
)

const ensureTableSQL = `
CREATE TABLE IF NOT EXISTS airdesk_tickets (
    id TEXT PRIMARY KEY,
    call_id TEXT,
    firm_id TEXT NOT NULL,
    intake JSONB NOT NULL,
    priority TEXT NOT NULL,
    status TEXT NOT NULL,
    lead_status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_airdesk_tickets_firm ON airdesk_tickets (firm_id, status);
`

// Postgres mirrors tickets into a Postgres table.
type Postgres struct {
	pool *pgxpool.Pool
}

// Config holds connection settings.
type Config struct {
	URL      string
	MaxConns int32
}

// NewPostgres connects, pings, and ensures the mirror table exists.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pg config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	if _, err := pool.Exec(ctx, ensureTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure mirror table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// InsertTicket upserts a ticket row.
func (p *Postgres) InsertTicket(ctx context.Context, t *ticket.Ticket) error {
	intake, err := json.Marshal(t.Intake)
	if err != nil {
		return fmt.Errorf("marshal intake: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO airdesk_tickets (id, call_id, firm_id, intake, priority, status, lead_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			intake = EXCLUDED.intake, priority = EXCLUDED.priority, status = EXCLUDED.status,
			lead_status = EXCLUDED.lead_status, updated_at = EXCLUDED.updated_at`,
		t.ID, t.CallID, t.FirmID, intake, string(t.Priority), string(t.Status),
		string(t.LeadStatus), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert mirror ticket: %w", err)
	}
	return nil
}

// UpdateTicketStatus records a board move.
func (p *Postgres) UpdateTicketStatus(ctx context.Context, id string, status ticket.Status, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE airdesk_tickets SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update mirror ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update mirror ticket %s: %w", id, ticket.ErrNotFound)
	}
	return nil
}

// DeleteTicket removes a ticket row. Missing rows are not an error.
func (p *Postgres) DeleteTicket(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM airdesk_tickets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete mirror ticket: %w", err)
	}
	return nil
}

// CountByStatus returns mirrored ticket counts for a firm.
func (p *Postgres) CountByStatus(ctx context.Context, firmID string) (map[ticket.Status]int, error) {
	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM airdesk_tickets WHERE firm_id = $1 GROUP BY status`, firmID)
	if err != nil {
		return nil, fmt.Errorf("count mirror tickets: %w", err)
	}
	counts := make(map[ticket.Status]int)
	var (
		status string
		count  int
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		counts[ticket.Status(status)] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan mirror counts: %w", err)
	}
	return counts, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() { p.pool.Close() }
