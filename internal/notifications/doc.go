// Package notifications pushes operator alerts to ntfy.
//
// The workflow publishes urgent tickets and pipeline failures; the CLI
// publishes a test message. When no topic is configured NewService returns a
// no-op implementation, and per-event toggles in config.toml suppress
// categories without disabling the rest.
package notifications
