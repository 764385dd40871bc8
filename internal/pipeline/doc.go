// Package pipeline implements the call processing stages run by the
// workflow manager.
//
//	received  --extract-->  extracted  --ticket-->  ticketed  --notify-->  notified
//
// Extraction and summarization never fail a call: they fall back to the
// existing record and a rule-based summary. Ticket creation is idempotent per
// call, so a retried ticket stage reuses the ticket it already created. A
// dispatch e-mail that exhausts its retries fails the call, but the ticket
// keeps its e-mail error and stays on the board.
package pipeline
