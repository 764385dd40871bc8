package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"airdesk/internal/intake"
)

// CallStatus is the processing state of an inbound call.
type CallStatus string

const (
	CallReceived   CallStatus = "received"
	CallExtracting CallStatus = "extracting"
	CallExtracted  CallStatus = "extracted"
	CallTicketing  CallStatus = "ticketing"
	CallTicketed   CallStatus = "ticketed"
	CallNotifying  CallStatus = "notifying"
	CallNotified   CallStatus = "notified"
	CallFailed     CallStatus = "failed"
)

var allCallStatuses = []CallStatus{
	CallReceived,
	CallExtracting,
	CallExtracted,
	CallTicketing,
	CallTicketed,
	CallNotifying,
	CallNotified,
	CallFailed,
}

var processingCallStatuses = map[CallStatus]CallStatus{
	CallExtracting: CallReceived,
	CallTicketing:  CallExtracted,
	CallNotifying:  CallTicketed,
}

// AllCallStatuses returns every call status in pipeline order.
func AllCallStatuses() []CallStatus {
	cp := make([]CallStatus, len(allCallStatuses))
	copy(cp, allCallStatuses)
	return cp
}

// ParseCallStatus converts a string into a known CallStatus.
func ParseCallStatus(value string) (CallStatus, bool) {
	normalized := CallStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allCallStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsProcessingCallStatus reports whether a stage is currently working on the call.
func IsProcessingCallStatus(status CallStatus) bool {
	_, ok := processingCallStatuses[status]
	return ok
}

// Call is an inbound call moving through the processing workflow.
type Call struct {
	ID                  string
	FirmID              string
	CallerID            string
	Transcript          string
	Record              intake.Record
	TicketID            string
	Status              CallStatus
	FailedFrom          CallStatus
	ErrorMessage        string
	Attempts            int
	EmergencyRedirected bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastHeartbeat       *time.Time
}

// NewCallInput describes a call to enqueue.
type NewCallInput struct {
	FirmID              string
	CallerID            string
	Transcript          string
	Record              intake.Record
	EmergencyRedirected bool
}

// NewCall enqueues a received call.
func (s *Store) NewCall(ctx context.Context, in NewCallInput) (*Call, error) {
	if strings.TrimSpace(in.FirmID) == "" {
		return nil, errors.New("new call: firm id required")
	}
	recordJSON, err := json.Marshal(in.Record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	id := uuid.NewString()
	timestamp := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO calls (
            id, firm_id, caller_id, transcript, record_json, status,
            emergency_redirected, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(in.FirmID),
		nullableString(in.CallerID),
		nullableString(in.Transcript),
		string(recordJSON),
		CallReceived,
		boolToInt(in.EmergencyRedirected),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert call: %w", err)
	}
	return s.GetCall(ctx, id)
}

// GetCall fetches a call by identifier. It returns nil when missing.
func (s *Store) GetCall(ctx context.Context, id string) (*Call, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get call: %w", err)
	}
	return call, nil
}

// UpdateCall persists changes to an existing call.
func (s *Store) UpdateCall(ctx context.Context, call *Call) error {
	if call == nil {
		return errors.New("call is nil")
	}
	recordJSON, err := json.Marshal(call.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	call.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE calls
         SET caller_id = ?, transcript = ?, record_json = ?, ticket_id = ?, status = ?,
             failed_from = ?, error_message = ?, attempts = ?, emergency_redirected = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		nullableString(call.CallerID),
		nullableString(call.Transcript),
		string(recordJSON),
		nullableString(call.TicketID),
		call.Status,
		nullableString(string(call.FailedFrom)),
		nullableString(call.ErrorMessage),
		call.Attempts,
		boolToInt(call.EmergencyRedirected),
		formatTime(call.UpdatedAt),
		nullableTime(call.LastHeartbeat),
		call.ID,
	); err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	return nil
}

// NextForStatuses returns the oldest call matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...CallStatus) (*Call, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + callColumns + ` FROM calls WHERE status IN (` + makePlaceholders(len(statuses)) + `) ORDER BY created_at LIMIT 1`
	call, err := scanCall(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next call: %w", err)
	}
	return call, nil
}

// ListCalls returns calls for a firm (or all firms when firmID is empty),
// newest first, optionally filtered by status.
func (s *Store) ListCalls(ctx context.Context, firmID string, statuses ...CallStatus) ([]*Call, error) {
	var (
		clauses []string
		args    []any
	)
	if firmID = strings.TrimSpace(firmID); firmID != "" {
		clauses = append(clauses, "firm_id = ?")
		args = append(args, firmID)
	}
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(statuses))+")")
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query := `SELECT ` + callColumns + ` FROM calls`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// ResetStuckProcessing returns in-flight calls to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE calls
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?)`,
		CallExtracting, CallReceived,
		CallTicketing, CallExtracted,
		CallNotifying, CallTicketed,
		formatTime(time.Now()),
		CallExtracting,
		CallTicketing,
		CallNotifying,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck calls: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat records that a stage is still working on a call.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE calls SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing resets in-flight calls whose heartbeat is older than cutoff.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE calls
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		CallExtracting, CallReceived,
		CallTicketing, CallExtracted,
		CallNotifying, CallTicketed,
		formatTime(time.Now()),
		CallExtracting,
		CallTicketing,
		CallNotifying,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale calls: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed calls back to the stage that failed. With no ids
// every failed call is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE calls
        SET status = COALESCE(failed_from, ?), failed_from = NULL, error_message = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{CallReceived, formatTime(time.Now()), CallFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed calls: %w", err)
	}
	return res.RowsAffected()
}

// CallStats returns a count of calls grouped by status.
func (s *Store) CallStats(ctx context.Context) (map[CallStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM calls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("call stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[CallStatus]int)
	for rows.Next() {
		var status CallStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const callColumns = "id, firm_id, caller_id, transcript, record_json, ticket_id, status, failed_from, error_message, attempts, emergency_redirected, created_at, updated_at, last_heartbeat"

func scanCall(scanner interface{ Scan(dest ...any) error }) (*Call, error) {
	var (
		id           string
		firmID       string
		callerID     sql.NullString
		transcript   sql.NullString
		recordJSON   sql.NullString
		ticketID     sql.NullString
		status       string
		failedFrom   sql.NullString
		errorMessage sql.NullString
		attempts     int
		redirected   int
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		heartbeatRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&firmID,
		&callerID,
		&transcript,
		&recordJSON,
		&ticketID,
		&status,
		&failedFrom,
		&errorMessage,
		&attempts,
		&redirected,
		&createdRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	call := &Call{
		ID:                  id,
		FirmID:              firmID,
		CallerID:            callerID.String,
		Transcript:          transcript.String,
		TicketID:            ticketID.String,
		Status:              CallStatus(status),
		FailedFrom:          CallStatus(failedFrom.String),
		ErrorMessage:        errorMessage.String,
		Attempts:            attempts,
		EmergencyRedirected: redirected != 0,
	}
	if recordJSON.Valid && recordJSON.String != "" {
		if err := json.Unmarshal([]byte(recordJSON.String), &call.Record); err != nil {
			return nil, fmt.Errorf("decode call record: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		call.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		call.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			call.LastHeartbeat = &heartbeat
		}
	}
	return call, nil
}
