// Package workflow advances inbound calls through the processing stages.
//
// The Manager polls the calls table, reclaims stale work via heartbeats, and
// feeds calls into the registered stage handlers (extract, ticket, notify)
// while recording failure metadata. It also aggregates call stats for
// /metrics and calls stage health checks for the health endpoint.
//
// Two lanes run independently: the intake lane turns transcripts into
// tickets, and the dispatch lane e-mails them. A slow mail provider therefore
// never delays ticket creation for the next caller.
//
// Failures wrapped with services.ErrTransient or services.ErrTimeout put the
// call back at the start of its stage for the next poll; every other failure
// marks the call failed and remembers the stage so `airdesk calls retry` can
// resume it.
package workflow
