// Package store persists calls, tickets, and firm settings in SQLite.
//
// The calls table is the work queue for the processing workflow: each row
// moves received, extracted, ticketed, notified (or failed), and the
// in-flight statuses are reset on daemon start. Tickets carry the board
// status and e-mail delivery state. All writes retry on SQLITE_BUSY with a
// short exponential backoff.
//
// An optional Mirror receives ticket inserts and status changes for
// reporting. Mirror failures are logged and never fail the SQLite write.
package store
