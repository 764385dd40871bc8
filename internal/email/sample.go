package email

import (
	"time"

	"airdesk/internal/classify"
	"airdesk/internal/intake"
	"airdesk/internal/summary"
	"airdesk/internal/ticket"
)

const sampleTranscript = `AI Receptionist: Thank you for calling ABC HVAC. This is Jessica. How can I help you with your HVAC needs today?

Caller: Hi, my furnace isn't working and I have no heat.

AI Receptionist: I understand. Is this something that needs attention ASAP, or can it wait?

Caller: ASAP please. It's very cold and I have elderly parents at home.

AI Receptionist: Got it. What's your name?

Caller: John Smith.

AI Receptionist: Thanks. What's the best number to reach you at?

Caller: 555-123-4567.

AI Receptionist: Thanks. What's the service address?

Caller: 123 Main Street, Chicago, Illinois.

AI Receptionist: When would you like us to come out? We have tomorrow morning at 8:00 a.m. available, or you can let me know your preference.

Caller: Tomorrow morning at 8:00 a.m. works.

AI Receptionist: Thank you. Our team will call or text you shortly to confirm the appointment. Have a great day!`

// SampleTicket returns a representative urgent no-heat ticket and summary for
// preview and test sends.
func SampleTicket(now time.Time) (*ticket.Ticket, summary.Summary) {
	rec := intake.Record{
		IssueCategory:        "No heat",
		IssueDescription:     "Furnace not working, no heat in the house",
		Urgency:              "ASAP",
		CallerName:           "John Smith",
		CallerPhone:          "+15551234567",
		AddressLine1:         "123 Main Street",
		City:                 "Chicago",
		State:                "IL",
		RequestedWindow:      "Tomorrow morning at 8:00 a.m.",
		NextAvailableOffered: true,
	}
	rec.FillAliases()

	s := summary.Summary{
		Title: "No Heat - John Smith - Chicago",
		Bullets: []string{
			"Caller: John Smith",
			"Phone: +1 (555) 123-4567",
			"Issue: No heat - Furnace not working",
			"Address: 123 Main Street, Chicago, IL",
			"Urgency: ASAP (elderly parents at home)",
			"Requested Time: Tomorrow morning at 8:00 a.m.",
		},
		KeyFacts:     summary.KeyFacts{Location: "123 Main Street, Chicago, IL"},
		ActionItems:  []string{"Dispatch technician to service address", "Confirm appointment with caller"},
		UrgencyLevel: classify.LevelHigh,
		FollowUp:     "Dispatch technician ASAP due to no heat and elderly residents",
	}

	t := &ticket.Ticket{
		ID:          ticket.NewID(now),
		CallID:      "test-call-id-123",
		Intake:      rec,
		SummaryJSON: s.JSON(),
		Transcript:  sampleTranscript,
		Priority:    classify.PriorityFor(rec),
		Status:      ticket.StatusReady,
		LeadStatus:  classify.LeadStatus(rec, false),
		EmailStatus: ticket.EmailPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return t, s
}
