// Package textutil provides small text helpers shared by intake, e-mail
// rendering, and the CLI.
//
// The primary use cases are:
//   - Normalizing caller phone numbers to E.164 and formatting them for display
//   - Keyword matching on word boundaries for rule-based intake extraction
//   - Truncation and title-casing of ticket fields
package textutil
