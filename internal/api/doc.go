// Package api defines wire-format types and converters for the AirDesk HTTP
// API. It translates tickets, calls, intake sessions, and workflow status into
// transport-friendly DTOs so dashboards and the CLI do not couple to internal
// types.
//
// # Key Types
//
// Ticket: a ticket with its parsed summary and RFC3339 timestamps.
//
// Board/BoardColumn: the three dispatch columns in display order.
//
// WorkflowStatus: running state, call counts by status, and stage health.
//
// IntakeTurn: one live intake step including the session's current record.
//
// # Client
//
// Client is a small bearer-token HTTP client the CLI uses to reach a running
// daemon. IsUnavailable distinguishes "daemon not running" from API errors so
// callers can fall back to opening the store directly.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums are exposed as their string values.
// Timestamps use RFC3339 with milliseconds.
package api
