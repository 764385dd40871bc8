package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"airdesk/internal/ticket"
)

const ticketIDAttempts = 5

const ticketColumns = "id, call_id, firm_id, intake_json, summary_json, transcript, priority, status, lead_status, email_status, email_attempts, last_error, created_at, updated_at"

// CreateTicket inserts a READY ticket with a pending e-mail. A fresh
// identifier is generated when t.ID is empty or collides.
func (s *Store) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil {
		return errors.New("ticket is nil")
	}
	if strings.TrimSpace(t.FirmID) == "" {
		return errors.New("create ticket: firm id required")
	}
	intakeJSON, err := json.Marshal(t.Intake)
	if err != nil {
		return fmt.Errorf("marshal intake: %w", err)
	}
	now := time.Now().UTC()
	t.Status = ticket.StatusReady
	t.EmailStatus = ticket.EmailPending
	if t.Priority == "" {
		t.Priority = ticket.PriorityNormal
	}
	if t.LeadStatus == "" {
		t.LeadStatus = ticket.LeadNew
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	explicitID := t.ID != ""
	for attempt := 0; attempt < ticketIDAttempts; attempt++ {
		if !explicitID || attempt > 0 {
			t.ID = ticket.NewID(now)
		}
		err = s.execWithoutResultRetry(
			ctx,
			`INSERT INTO tickets (
                id, call_id, firm_id, intake_json, summary_json, transcript, priority,
                status, lead_status, email_status, email_attempts, last_error, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID,
			nullableString(t.CallID),
			t.FirmID,
			string(intakeJSON),
			nullableString(t.SummaryJSON),
			nullableString(t.Transcript),
			t.Priority,
			t.Status,
			t.LeadStatus,
			t.EmailStatus,
			t.EmailAttempts,
			nullableString(t.LastError),
			formatTime(t.CreatedAt),
			formatTime(t.UpdatedAt),
		)
		if err == nil {
			s.mirrorInsert(ctx, t)
			return nil
		}
		if !isUniqueViolation(err) {
			break
		}
	}
	return fmt.Errorf("insert ticket: %w", err)
}

// GetTicket fetches a ticket by identifier.
func (s *Store) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// TicketForCall returns the ticket created from a call, or nil.
func (s *Store) TicketForCall(ctx context.Context, callID string) (*ticket.Ticket, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+ticketColumns+` FROM tickets WHERE call_id = ? ORDER BY created_at DESC LIMIT 1`, callID)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ticket for call: %w", err)
	}
	return t, nil
}

// ListTickets returns tickets URGENT first, then newest first.
func (s *Store) ListTickets(ctx context.Context, filter ticket.Filter) ([]*ticket.Ticket, error) {
	var (
		clauses []string
		args    []any
	)
	if firmID := strings.TrimSpace(filter.FirmID); firmID != "" {
		clauses = append(clauses, "firm_id = ?")
		args = append(args, firmID)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.UrgentOnly {
		clauses = append(clauses, "priority = ?")
		args = append(args, ticket.PriorityUrgent)
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY CASE priority WHEN 'URGENT' THEN 0 ELSE 1 END, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// TicketBoard returns the firm's tickets grouped into board columns.
func (s *Store) TicketBoard(ctx context.Context, firmID string, urgentOnly bool) ([]ticket.Column, error) {
	tickets, err := s.ListTickets(ctx, ticket.Filter{FirmID: firmID, UrgentOnly: urgentOnly})
	if err != nil {
		return nil, err
	}
	return ticket.BuildBoard(tickets, urgentOnly), nil
}

// UpdateTicketStatus moves a firm's ticket to a new board column. It reports
// whether the stored status changed.
func (s *Store) UpdateTicketStatus(ctx context.Context, firmID, id string, status ticket.Status) (bool, error) {
	var (
		changed bool
		now     = time.Now().UTC()
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		changed = false
		var owner, current string
		err := tx.QueryRowContext(ctx, `SELECT firm_id, status FROM tickets WHERE id = ?`, id).Scan(&owner, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return ticket.ErrNotFound
		}
		if err != nil {
			return err
		}
		if firmID != "" && owner != firmID {
			return ticket.ErrForbidden
		}
		ok, err := ticket.CheckTransition(ticket.Status(current), status)
		if err != nil || !ok {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`, status, formatTime(now), id); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update ticket status: %w", err)
	}
	if changed {
		s.mirrorStatus(ctx, id, status, now)
	}
	return changed, nil
}

// RecordEmailAttempt stores the outcome of a dispatch e-mail send.
func (s *Store) RecordEmailAttempt(ctx context.Context, id string, attempts int, sendErr error) error {
	status := ticket.EmailSent
	lastError := ""
	if sendErr != nil {
		status = ticket.EmailFailed
		lastError = sendErr.Error()
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tickets SET email_status = ?, email_attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status,
		attempts,
		nullableString(lastError),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record email attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ticket.ErrNotFound
	}
	return nil
}

// DeleteTicket removes a firm's ticket.
func (s *Store) DeleteTicket(ctx context.Context, firmID, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT firm_id FROM tickets WHERE id = ?`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ticket.ErrNotFound
		}
		if err != nil {
			return err
		}
		if firmID != "" && owner != firmID {
			return ticket.ErrForbidden
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	s.mirrorDelete(ctx, id)
	return nil
}

func scanTicket(scanner interface{ Scan(dest ...any) error }) (*ticket.Ticket, error) {
	var (
		id            string
		callID        sql.NullString
		firmID        string
		intakeJSON    string
		summaryJSON   sql.NullString
		transcript    sql.NullString
		priority      string
		status        string
		leadStatus    string
		emailStatus   string
		emailAttempts int
		lastError     sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&id,
		&callID,
		&firmID,
		&intakeJSON,
		&summaryJSON,
		&transcript,
		&priority,
		&status,
		&leadStatus,
		&emailStatus,
		&emailAttempts,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	t := &ticket.Ticket{
		ID:            id,
		CallID:        callID.String,
		FirmID:        firmID,
		SummaryJSON:   summaryJSON.String,
		Transcript:    transcript.String,
		Priority:      ticket.Priority(priority),
		Status:        ticket.NormalizeStatus(status),
		LeadStatus:    ticket.LeadStatus(leadStatus),
		EmailStatus:   ticket.EmailStatus(emailStatus),
		EmailAttempts: emailAttempts,
		LastError:     lastError.String,
	}
	if intakeJSON != "" {
		if err := json.Unmarshal([]byte(intakeJSON), &t.Intake); err != nil {
			return nil, fmt.Errorf("decode ticket intake: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		t.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		t.UpdatedAt = updated
	}
	return t, nil
}
