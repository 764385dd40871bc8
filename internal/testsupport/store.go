package testsupport

import (
	"context"
	"testing"

	"airdesk/internal/config"
	"airdesk/internal/firm"
	"airdesk/internal/intake"
	"airdesk/internal/store"
	"airdesk/internal/ticket"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SampleRecord returns a fully captured intake record.
func SampleRecord() intake.Record {
	return intake.Record{
		IssueCategory:    "No heat",
		IssueDescription: "Furnace stopped blowing warm air overnight",
		Urgency:          "ASAP",
		CallerName:       "Dana Smith",
		CallerPhone:      "+15125550134",
		AddressLine1:     "42 Elm Street",
		City:             "Austin",
		State:            "TX",
		RequestedWindow:  "tomorrow morning",
	}
}

// NewCall enqueues a received call for tests.
func NewCall(t testing.TB, st *store.Store, firmID string, record intake.Record) *store.Call {
	t.Helper()

	call, err := st.NewCall(context.Background(), store.NewCallInput{
		FirmID:     firmID,
		CallerID:   record.CallerPhone,
		Transcript: "Caller: my heat is out\nAgent: sorry to hear that",
		Record:     record,
	})
	if err != nil {
		t.Fatalf("store.NewCall: %v", err)
	}
	return call
}

// NewTicket inserts a ticket for tests.
func NewTicket(t testing.TB, st *store.Store, firmID string, priority ticket.Priority) *ticket.Ticket {
	t.Helper()

	tk := &ticket.Ticket{FirmID: firmID, Intake: SampleRecord(), Priority: priority}
	if err := st.CreateTicket(context.Background(), tk); err != nil {
		t.Fatalf("store.CreateTicket: %v", err)
	}
	return tk
}

// SaveFirm stores valid settings for firmID with a single notification
// address.
func SaveFirm(t testing.TB, st *store.Store, firmID string) firm.Settings {
	t.Helper()

	settings := firm.Defaults(firmID)
	settings.FirmName = "Acme Heating"
	settings.NotifyEmails = []string{"dispatch@acme.test"}
	if err := st.SaveFirmSettings(context.Background(), &settings); err != nil {
		t.Fatalf("store.SaveFirmSettings: %v", err)
	}
	return settings
}
