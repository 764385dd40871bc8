package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"airdesk/internal/api"
	"airdesk/internal/events"
	"airdesk/internal/firm"
	"airdesk/internal/store"
	"airdesk/internal/testsupport"
	"airdesk/internal/ticket"
)

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.daemon.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)

	resp := decode[api.HealthResponse](t, rec)
	if resp.Status != "ok" || resp.Database != "ok" || resp.Sessions != "ok" {
		t.Fatalf("unexpected health %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRequestsRequireBearerToken(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("X-Firm-ID", testFirm)
	rec := httptest.NewRecorder()
	h.daemon.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("X-Firm-ID", testFirm)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.daemon.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.daemon.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestMetricsNeedNoFirm(t *testing.T) {
	h := newHarness(t)
	rec := h.doAs(t, "", http.MethodGet, "/metrics", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestFirmHeaderRequired(t *testing.T) {
	h := newHarness(t)
	rec := h.doAs(t, "", http.MethodGet, "/api/tickets", nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[api.ErrorResponse](t, rec).Error; got != "X-Firm-ID header is required" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestRateLimitPerFirm(t *testing.T) {
	h := newHarness(t, withRate(0.001, 1))

	expectStatus(t, h.do(t, http.MethodGet, "/api/tickets", nil), http.StatusOK)
	rec := h.do(t, http.MethodGet, "/api/tickets", nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}

	// Another firm has its own bucket.
	expectStatus(t, h.doAs(t, "firm-other", http.MethodGet, "/api/tickets", nil), http.StatusOK)
}

func TestListTicketsScopedToFirm(t *testing.T) {
	h := newHarness(t)
	urgent := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityUrgent)
	normal := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityNormal)
	testsupport.NewTicket(t, h.store, "firm-other", ticket.PriorityUrgent)

	rec := h.do(t, http.MethodGet, "/api/tickets", nil)
	expectStatus(t, rec, http.StatusOK)
	resp := decode[api.TicketListResponse](t, rec)
	var ids []string
	for _, tk := range resp.Tickets {
		ids = append(ids, tk.ID)
	}
	if diff := cmp.Diff([]string{urgent.ID, normal.ID}, ids); diff != "" {
		t.Fatalf("ticket ids mismatch (-want +got):\n%s", diff)
	}

	rec = h.do(t, http.MethodGet, "/api/tickets?urgent=1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[api.TicketListResponse](t, rec).Tickets; len(got) != 1 || got[0].ID != urgent.ID {
		t.Fatalf("expected only urgent ticket, got %+v", got)
	}

	rec = h.do(t, http.MethodGet, "/api/tickets?status=ARCHIVED", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestBoardHasEveryColumn(t *testing.T) {
	h := newHarness(t)
	tk := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityNormal)

	rec := h.do(t, http.MethodGet, "/api/tickets/board", nil)
	expectStatus(t, rec, http.StatusOK)
	board := decode[api.Board](t, rec)

	var statuses []string
	for _, col := range board.Columns {
		statuses = append(statuses, col.Status)
	}
	if diff := cmp.Diff([]string{"READY", "DISPATCHED", "COMPLETED"}, statuses); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(board.Columns[0].Tickets) != 1 || board.Columns[0].Tickets[0].ID != tk.ID {
		t.Fatalf("expected ticket in READY column, got %+v", board.Columns[0])
	}
}

func TestGetTicketChecksOwnership(t *testing.T) {
	h := newHarness(t)
	tk := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityNormal)

	rec := h.do(t, http.MethodGet, "/api/tickets/"+tk.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[api.Ticket](t, rec); got.ID != tk.ID || got.Status != "READY" {
		t.Fatalf("unexpected ticket %+v", got)
	}

	expectStatus(t, h.doAs(t, "firm-other", http.MethodGet, "/api/tickets/"+tk.ID, nil), http.StatusForbidden)
	rec = h.do(t, http.MethodGet, "/api/tickets/HVAC-0000-0000-0000", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if got := decode[api.ErrorResponse](t, rec).Error; got != "Ticket not found" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	tk := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityNormal)
	path := "/api/tickets/" + tk.ID + "/status"

	rec := h.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "dispatched"})
	expectStatus(t, rec, http.StatusOK)
	want := api.StatusUpdateResponse{Success: true, Status: "DISPATCHED", Changed: true}
	if diff := cmp.Diff(want, decode[api.StatusUpdateResponse](t, rec)); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}

	rec = h.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "DISPATCHED"})
	expectStatus(t, rec, http.StatusOK)
	if decode[api.StatusUpdateResponse](t, rec).Changed {
		t.Fatal("repeating the current status must not report a change")
	}

	rec = h.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "READY"})
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[api.ErrorResponse](t, rec).Error; got != "Cannot move ticket backwards" {
		t.Fatalf("unexpected error %q", got)
	}

	rec = h.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "ARCHIVED"})
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[api.ErrorResponse](t, rec).Error; got != "Invalid status. Must be READY, DISPATCHED, or COMPLETED" {
		t.Fatalf("unexpected error %q", got)
	}

	expectStatus(t, h.doAs(t, "firm-other", http.MethodPatch, path, api.StatusUpdateRequest{Status: "COMPLETED"}), http.StatusForbidden)
	expectStatus(t, h.do(t, http.MethodPatch, "/api/tickets/missing/status", api.StatusUpdateRequest{Status: "COMPLETED"}), http.StatusNotFound)

	stored, err := h.store.GetTicket(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if stored.Status != ticket.StatusDispatched {
		t.Fatalf("stored status = %s, want DISPATCHED", stored.Status)
	}
	if diff := cmp.Diff([]events.Kind{events.TicketStatus}, h.publisher.kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteTicket(t *testing.T) {
	h := newHarness(t)
	tk := testsupport.NewTicket(t, h.store, testFirm, ticket.PriorityNormal)

	expectStatus(t, h.doAs(t, "firm-other", http.MethodDelete, "/api/tickets/"+tk.ID, nil), http.StatusForbidden)
	expectStatus(t, h.do(t, http.MethodDelete, "/api/tickets/"+tk.ID, nil), http.StatusNoContent)
	expectStatus(t, h.do(t, http.MethodDelete, "/api/tickets/"+tk.ID, nil), http.StatusNotFound)

	if diff := cmp.Diff([]events.Kind{events.TicketDeleted}, h.publisher.kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitCallQueuesForProcessing(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/calls", api.CallSubmission{})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = h.do(t, http.MethodPost, "/api/calls", api.CallSubmission{
		CallerID:   "+15125550134",
		Transcript: "Caller: my furnace stopped working",
	})
	expectStatus(t, rec, http.StatusAccepted)
	accepted := decode[api.CallAccepted](t, rec)
	if accepted.CallID == "" || accepted.Status != string(store.CallReceived) {
		t.Fatalf("unexpected response %+v", accepted)
	}

	call, err := h.store.GetCall(context.Background(), accepted.CallID)
	if err != nil || call == nil {
		t.Fatalf("GetCall: %v %v", call, err)
	}
	if call.FirmID != testFirm {
		t.Fatalf("call firm = %q, want %q", call.FirmID, testFirm)
	}

	rec = h.do(t, http.MethodGet, "/api/calls?status=received", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[api.CallListResponse](t, rec).Calls; len(got) != 1 || got[0].ID != accepted.CallID {
		t.Fatalf("unexpected calls %+v", got)
	}
	expectStatus(t, h.do(t, http.MethodGet, "/api/calls?status=bogus", nil), http.StatusBadRequest)
}

func TestRetryFailedCalls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := testsupport.NewCall(t, h.store, testFirm, testsupport.SampleRecord())
	call.Status = store.CallFailed
	call.FailedFrom = store.CallTicketed
	call.ErrorMessage = "resend unavailable"
	if err := h.store.UpdateCall(ctx, call); err != nil {
		t.Fatalf("UpdateCall: %v", err)
	}
	other := testsupport.NewCall(t, h.store, "firm-other", testsupport.SampleRecord())
	other.Status = store.CallFailed
	if err := h.store.UpdateCall(ctx, other); err != nil {
		t.Fatalf("UpdateCall: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/calls/retry", map[string]any{"ids": []string{call.ID, other.ID}})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[api.RetryResponse](t, rec).Updated; got != 1 {
		t.Fatalf("updated = %d, want 1", got)
	}

	reloaded, err := h.store.GetCall(ctx, call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if reloaded.Status != store.CallTicketed {
		t.Fatalf("status = %s, want %s", reloaded.Status, store.CallTicketed)
	}
	untouched, err := h.store.GetCall(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if untouched.Status != store.CallFailed {
		t.Fatalf("other firm's call moved to %s", untouched.Status)
	}
}

func TestIntakeSessionQueuesCallWhenClosed(t *testing.T) {
	h := newHarness(t)
	testsupport.SaveFirm(t, h.store, testFirm)

	rec := h.do(t, http.MethodPost, "/api/intake/sessions", api.SessionRequest{CallerID: "555-123-4567"})
	expectStatus(t, rec, http.StatusCreated)
	start := decode[api.IntakeTurn](t, rec)
	if start.SessionID == "" || start.NextState != "ISSUE_CAPTURE" {
		t.Fatalf("unexpected first turn %+v", start)
	}

	utterances := []string{
		"My furnace is not working and my kids are freezing",
		"This is jane doe",
		"Yes",
		"123 Main St, springfield, il",
		"next available works",
	}
	var last api.IntakeTurn
	for _, utterance := range utterances {
		rec = h.do(t, http.MethodPost, "/api/intake/sessions/"+start.SessionID+"/turns", api.TurnRequest{Utterance: utterance})
		expectStatus(t, rec, http.StatusOK)
		last = decode[api.IntakeTurn](t, rec)
	}
	if !last.Done || last.CallID == "" {
		t.Fatalf("expected closed session with call id, got %+v", last)
	}
	if last.Record.CallerName != "Jane Doe" {
		t.Fatalf("caller name = %q", last.Record.CallerName)
	}

	call, err := h.store.GetCall(context.Background(), last.CallID)
	if err != nil || call == nil {
		t.Fatalf("GetCall: %v %v", call, err)
	}
	if call.Transcript == "" || call.Record.AddressLine1 != "123 Main St" {
		t.Fatalf("call missing intake data: %+v", call)
	}

	rec = h.do(t, http.MethodPost, "/api/intake/sessions/"+start.SessionID+"/turns", api.TurnRequest{Utterance: "hello?"})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestIntakeSessionsAreFirmScoped(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/intake/sessions", api.SessionRequest{})
	expectStatus(t, rec, http.StatusCreated)
	id := decode[api.IntakeTurn](t, rec).SessionID

	rec = h.doAs(t, "firm-other", http.MethodPost, "/api/intake/sessions/"+id+"/turns", api.TurnRequest{Utterance: "no heat"})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestFirmSettingsRoundTrip(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/firm/settings", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[firm.Settings](t, rec); got.FirmID != testFirm || got.Timezone == "" {
		t.Fatalf("expected defaults, got %+v", got)
	}

	rec = h.do(t, http.MethodPut, "/api/firm/settings", firm.Settings{FirmName: "Acme"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = h.do(t, http.MethodPut, "/api/firm/settings", firm.Settings{
		FirmID:       "someone-else",
		FirmName:     "Acme Heating",
		NotifyEmails: []string{"dispatch@acme.test"},
	})
	expectStatus(t, rec, http.StatusOK)

	settings, found, err := h.store.GetFirmSettings(context.Background(), testFirm)
	if err != nil || !found {
		t.Fatalf("GetFirmSettings: found=%v err=%v", found, err)
	}
	if settings.FirmName != "Acme Heating" {
		t.Fatalf("firm name = %q", settings.FirmName)
	}
	if _, found, _ := h.store.GetFirmSettings(context.Background(), "someone-else"); found {
		t.Fatal("body firm id must be ignored")
	}
}

func TestVoiceAgentPayload(t *testing.T) {
	h := newHarness(t)
	testsupport.SaveFirm(t, h.store, testFirm)

	rec := h.do(t, http.MethodGet, "/api/firm/voice-agent", nil)
	expectStatus(t, rec, http.StatusOK)
	resp := decode[api.VoiceAgentResponse](t, rec)
	if len(resp.Assistant) == 0 {
		t.Fatal("expected assistant payload")
	}
	if resp.Webhooks != nil {
		t.Fatalf("webhooks need voice.app_url, got %+v", resp.Webhooks)
	}

	h.cfg.Voice.AppURL = "airdesk.example.com"
	rec = h.do(t, http.MethodGet, "/api/firm/voice-agent", nil)
	expectStatus(t, rec, http.StatusOK)
	resp = decode[api.VoiceAgentResponse](t, rec)
	if resp.Webhooks == nil || resp.Webhooks.Voice != "https://airdesk.example.com/api/twilio/voice" {
		t.Fatalf("unexpected webhooks %+v", resp.Webhooks)
	}
}

func TestEmailTest(t *testing.T) {
	h := newHarness(t)

	expectStatus(t, h.do(t, http.MethodPost, "/api/email/test", nil), http.StatusBadRequest)

	testsupport.SaveFirm(t, h.store, testFirm)
	rec := h.do(t, http.MethodPost, "/api/email/test", nil)
	expectStatus(t, rec, http.StatusOK)
	resp := decode[api.EmailTestResponse](t, rec)
	if !resp.Sent || resp.ID != "msg_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if diff := cmp.Diff([]string{"dispatch@acme.test"}, resp.To); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
	if len(h.sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(h.sender.sent))
	}
}

func TestEmailTestWithoutSender(t *testing.T) {
	h := newHarness(t, withoutSender())
	testsupport.SaveFirm(t, h.store, testFirm)
	expectStatus(t, h.do(t, http.MethodPost, "/api/email/test", nil), http.StatusServiceUnavailable)
}
