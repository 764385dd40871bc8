// Package events publishes ticket lifecycle events to NATS.
//
// Subjects are "{prefix}.ticket.created", "{prefix}.ticket.status" and
// "{prefix}.ticket.deleted". Publishing is fire-and-forget: a dropped event
// never fails the ticket write that produced it.
package events
