// Package services defines shared utilities consumed by the call workflow
// stages and the external integrations (LLM, Resend, ntfy).
//
// Key responsibilities:
//   - Context helpers that stamp call IDs, firm IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so the workflow can tell
//     retryable failures from terminal ones.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
