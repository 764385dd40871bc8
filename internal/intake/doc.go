// Package intake implements the live call-intake conversation.
//
// A Session walks a fixed sequence of states (issue, urgency, name, phone,
// address, scheduling, close) and fills a Record as the caller answers. Each
// state asks its question at most twice; a second miss records "unknown" and
// moves on so a call never dead-ends. States whose fields are already known
// are skipped without asking. A cost question detours through PRICING once
// when the firm enables a service fee.
//
// The default mode is rule based: Extractor maps single utterances onto
// record fields using the phrase tables in scripts.yaml. LLMTurn drives the
// same session through a chat model and falls back to the rules whenever the
// model reply is unusable.
package intake
