// Package email renders dispatch tickets into e-mail and delivers them through
// the Resend HTTP API.
//
// Render produces the subject, hidden preheader, HTML and plain-text bodies
// from a ticket, its summary, and the firm settings. Client speaks the Resend
// API. Sender wraps a Client with bounded retries (1s, 2s, 4s, ...) and
// returns the last error when every attempt fails.
package email
