// Package logging assembles the slog loggers used by the AirDesk daemon and
// CLI.
//
// It owns the console and JSON handlers, per-component level overrides, and
// context-aware helpers so workflow and API code can tag log lines with call
// IDs, firm IDs, stages, and correlation IDs. WarnWithContext and
// ErrorWithContext enforce the event_type / error_hint / impact convention
// for anything an operator may need to act on.
package logging
