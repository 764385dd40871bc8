// Package classify holds the priority, urgency, and lead-status rules applied
// to every processed call.
package classify

import (
	"strings"

	"airdesk/internal/intake"
	"airdesk/internal/ticket"
)

// Level is the summary urgency level.
type Level string

const (
	LevelNormal              Level = "normal"
	LevelHigh                Level = "high"
	LevelEmergencyRedirected Level = "emergency_redirected"
)

var (
	urgentActions = []string{
		"Dispatch on-call technician immediately",
		"Confirm ETA with caller within 15 minutes",
		"Follow up if no response within 30 minutes",
	}
	standardActions = []string{
		"Confirm appointment window with caller",
		"Assign technician to service address",
		"Send confirmation text/email when scheduled",
	}
)

func isOutage(category string) bool {
	category = strings.TrimSpace(category)
	return strings.EqualFold(category, "No heat") || strings.EqualFold(category, "No cool")
}

func isPressing(urgency string) bool {
	urgency = strings.TrimSpace(urgency)
	return strings.EqualFold(urgency, "ASAP") || strings.EqualFold(urgency, "high")
}

// Priority is URGENT only for a heating or cooling outage the caller needs
// handled ASAP.
func Priority(category, urgency string) ticket.Priority {
	if isOutage(category) && isPressing(urgency) {
		return ticket.PriorityUrgent
	}
	return ticket.PriorityNormal
}

// PriorityFor applies Priority to an intake record.
func PriorityFor(record intake.Record) ticket.Priority {
	return Priority(record.IssueCategory, record.Urgency)
}

// UrgencyLevel derives the summary urgency. Outages are judged on urgency
// alone; otherwise a redirected emergency takes precedence.
func UrgencyLevel(category, urgency string, emergencyRedirected bool) Level {
	switch {
	case isOutage(category):
		if isPressing(urgency) {
			return LevelHigh
		}
		return LevelNormal
	case emergencyRedirected:
		return LevelEmergencyRedirected
	case isPressing(urgency):
		return LevelHigh
	default:
		return LevelNormal
	}
}

// ActionItems returns the dispatcher checklist for a ticket.
func ActionItems(priority ticket.Priority, urgency string) []string {
	source := standardActions
	if priority == ticket.PriorityUrgent || strings.EqualFold(strings.TrimSpace(urgency), "ASAP") {
		source = urgentActions
	}
	items := make([]string, len(source))
	copy(items, source)
	return items
}

// LeadStatus is INCOMPLETE only when a required detail is missing and the
// firm asked to receive incomplete leads.
func LeadStatus(record intake.Record, sendIncomplete bool) ticket.LeadStatus {
	complete := record.Name() != "" && record.Phone() != "" && record.Issue() != ""
	if !complete && sendIncomplete {
		return ticket.LeadIncomplete
	}
	return ticket.LeadNew
}
