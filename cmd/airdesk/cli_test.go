package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airdesk/internal/api"
	"airdesk/internal/events"
	"airdesk/internal/firm"
	"airdesk/internal/store"
	"airdesk/internal/testsupport"
	"airdesk/internal/ticket"
)

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if _, err := runCLI(t, env, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "LLM configured: no")
	requireContains(t, out, "Configuration valid")

	out, err = runCLI(t, env, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, testsupport.TestAPIToken) {
		t.Fatalf("api token leaked in output:\n%s", out)
	}
	requireContains(t, out, "te******en")
}

func TestFirmSetAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "firm", "set", "--name", "Acme Heating"); err == nil || !strings.Contains(err.Error(), "settings not saved") {
		t.Fatalf("expected validation error without e-mails, got %v", err)
	}

	out, err := runCLI(t, env, "", "firm", "set", "--name", "Acme Heating", "--emails", "dispatch@acme.test, owner@acme.test", "--service-fee", "89")
	if err != nil {
		t.Fatalf("firm set: %v", err)
	}
	requireContains(t, out, "Saved settings for Acme Heating (default)")

	out, err = runCLI(t, env, "", "firm", "show")
	if err != nil {
		t.Fatalf("firm show: %v", err)
	}
	var settings firm.Settings
	if err := json.Unmarshal([]byte(out), &settings); err != nil {
		t.Fatalf("decode settings: %v\n%s", err, out)
	}
	if settings.FirmName != "Acme Heating" || len(settings.NotifyEmails) != 2 || !settings.ServiceFeeEnabled {
		t.Fatalf("unexpected settings %+v", settings)
	}

	// Unchanged flags keep earlier values.
	if _, err := runCLI(t, env, "", "firm", "set", "--agent", "Riley"); err != nil {
		t.Fatalf("firm set --agent: %v", err)
	}
	stored, found, err := env.store.GetFirmSettings(context.Background(), "default")
	if err != nil || !found {
		t.Fatalf("GetFirmSettings found=%v err=%v", found, err)
	}
	if stored.AgentName != "Riley" || stored.FirmName != "Acme Heating" {
		t.Fatalf("unexpected stored settings %+v", stored)
	}
}

func TestFirmFlagScopesCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewTicket(t, env.store, "firm-other", ticket.PriorityNormal)

	out, err := runCLI(t, env, "", "tickets", "list")
	if err != nil {
		t.Fatalf("tickets list: %v", err)
	}
	requireContains(t, out, "No tickets")

	out, err = runCLI(t, env, "", "--firm", "firm-other", "tickets", "list", "--json")
	if err != nil {
		t.Fatalf("tickets list --firm: %v", err)
	}
	var tickets []api.Ticket
	if err := json.Unmarshal([]byte(out), &tickets); err != nil {
		t.Fatalf("decode tickets: %v\n%s", err, out)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(tickets))
	}
}

func TestTicketsListAndBoard(t *testing.T) {
	env := setupCLITestEnv(t)
	urgent := testsupport.NewTicket(t, env.store, "default", ticket.PriorityUrgent)
	normal := testsupport.NewTicket(t, env.store, "default", ticket.PriorityNormal)

	out, err := runCLI(t, env, "", "tickets", "list")
	if err != nil {
		t.Fatalf("tickets list: %v", err)
	}
	requireContains(t, out, urgent.ID)
	requireContains(t, out, normal.ID)
	if strings.Index(out, urgent.ID) > strings.Index(out, normal.ID) {
		t.Fatalf("urgent ticket should sort first:\n%s", out)
	}

	out, err = runCLI(t, env, "", "tickets", "list", "--urgent")
	if err != nil {
		t.Fatalf("tickets list --urgent: %v", err)
	}
	if strings.Contains(out, normal.ID) {
		t.Fatalf("urgent filter leaked normal ticket:\n%s", out)
	}

	out, err = runCLI(t, env, "", "tickets", "board")
	if err != nil {
		t.Fatalf("tickets board: %v", err)
	}
	requireContains(t, out, "Ready to Dispatch (2)")
	requireContains(t, out, "Dispatched (0)")
	requireContains(t, out, "(empty)")

	out, err = runCLI(t, env, "", "tickets", "show", normal.ID)
	if err != nil {
		t.Fatalf("tickets show: %v", err)
	}
	var shown api.Ticket
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode ticket: %v\n%s", err, out)
	}
	if shown.ID != normal.ID {
		t.Fatalf("shown ticket = %q", shown.ID)
	}

	if _, err := runCLI(t, env, "", "tickets", "list", "--status", "ARCHIVED"); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestTicketsMoveFallsBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	tk := testsupport.NewTicket(t, env.store, "default", ticket.PriorityNormal)

	out, err := runCLI(t, env, "", "tickets", "move", tk.ID, "dispatched")
	if err != nil {
		t.Fatalf("tickets move: %v", err)
	}
	requireContains(t, out, "Moved "+tk.ID+" to Dispatched")

	stored, err := env.store.GetTicket(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if stored.Status != ticket.StatusDispatched {
		t.Fatalf("status = %s", stored.Status)
	}

	out, err = runCLI(t, env, "", "tickets", "move", tk.ID, "DISPATCHED")
	if err != nil {
		t.Fatalf("repeat move: %v", err)
	}
	requireContains(t, out, "is already DISPATCHED")

	if _, err := runCLI(t, env, "", "tickets", "move", tk.ID, "READY"); err == nil {
		t.Fatal("expected backwards move to fail")
	}
	if _, err := runCLI(t, env, "", "tickets", "move", "missing", "COMPLETED"); err == nil {
		t.Fatal("expected unknown ticket to fail")
	}
}

func TestTicketsMoveThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)
	tk := testsupport.NewTicket(t, env.store, "default", ticket.PriorityUrgent)

	out, err := runCLI(t, env, "", "tickets", "move", tk.ID, "COMPLETED")
	if err != nil {
		t.Fatalf("tickets move: %v", err)
	}
	requireContains(t, out, "Moved "+tk.ID+" to Completed")

	env.publisher.mu.Lock()
	defer env.publisher.mu.Unlock()
	if len(env.publisher.events) != 1 || env.publisher.events[0].Kind != events.TicketStatus {
		t.Fatalf("expected one status event, got %+v", env.publisher.events)
	}
}

func TestCallsSubmitListAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "calls", "submit"); err == nil {
		t.Fatal("expected empty transcript error")
	}

	out, err := runCLI(t, env, "Caller: my AC is blowing warm air\nAgent: we will send someone\n", "calls", "submit", "--caller", "555-0100")
	if err != nil {
		t.Fatalf("calls submit: %v", err)
	}
	requireContains(t, out, "it will be processed when airdeskd starts")

	out, err = runCLI(t, env, "", "calls", "list", "--status", "received")
	if err != nil {
		t.Fatalf("calls list: %v", err)
	}
	requireContains(t, out, string(store.CallReceived))

	out, err = runCLI(t, env, "", "calls", "retry")
	if err != nil {
		t.Fatalf("calls retry: %v", err)
	}
	requireContains(t, out, "No failed calls")

	calls, err := env.store.ListCalls(context.Background(), "default")
	if err != nil || len(calls) != 1 {
		t.Fatalf("ListCalls len=%d err=%v", len(calls), err)
	}
	call := calls[0]
	call.Status = store.CallFailed
	call.ErrorMessage = "llm timeout"
	if err := env.store.UpdateCall(context.Background(), call); err != nil {
		t.Fatalf("UpdateCall: %v", err)
	}

	out, err = runCLI(t, env, "", "calls", "retry", call.ID)
	if err != nil {
		t.Fatalf("calls retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 call(s)")

	if _, err := runCLI(t, env, "", "calls", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestCallsSubmitThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)

	out, err := runCLI(t, env, "Caller: there is a gas smell\n", "calls", "submit", "-")
	if err != nil {
		t.Fatalf("calls submit: %v", err)
	}
	requireContains(t, out, "Queued call ")
	if strings.Contains(out, "airdeskd starts") {
		t.Fatalf("expected daemon path, got %q", out)
	}
}

func TestIntakeSimulateQueuesCall(t *testing.T) {
	env := setupCLITestEnv(t)
	script := strings.Join([]string{
		"My furnace is not working and my kids are freezing",
		"This is jane doe",
		"Yes",
		"123 Main St, springfield, il",
		"next available works",
	}, "\n") + "\n"

	out, err := runCLI(t, env, script, "intake", "simulate", "--caller", "555-123-4567", "--queue")
	if err != nil {
		t.Fatalf("intake simulate: %v\n%s", err, out)
	}
	requireContains(t, out, "Agent: ")
	requireContains(t, out, "Caller: This is jane doe")
	requireContains(t, out, "Jane Doe")
	requireContains(t, out, "Queued call ")

	calls, err := env.store.ListCalls(context.Background(), "default", store.CallReceived)
	if err != nil || len(calls) != 1 {
		t.Fatalf("ListCalls len=%d err=%v", len(calls), err)
	}
	if calls[0].Record.AddressLine1 != "123 Main St" {
		t.Fatalf("unexpected record %+v", calls[0].Record)
	}
}

func TestIntakeSimulateRefusesToQueueOpenSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "My heat pump is making a noise\n", "intake", "simulate", "--queue")
	if err == nil || !strings.Contains(err.Error(), "call not queued") {
		t.Fatalf("expected open session error, got %v\n%s", err, out)
	}
	if _, err := runCLI(t, env, "", "intake", "simulate", "--llm"); err == nil {
		t.Fatal("expected --llm to require an api key")
	}
}

func TestEmailPreviewSample(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SaveFirm(t, env.store, "default")

	out, err := runCLI(t, env, "", "email", "preview")
	if err != nil {
		t.Fatalf("email preview: %v", err)
	}
	requireContains(t, out, "To: dispatch@acme.test")
	requireContains(t, out, "Subject: ")

	out, err = runCLI(t, env, "", "email", "preview", "--format", "html")
	if err != nil {
		t.Fatalf("email preview html: %v", err)
	}
	requireContains(t, out, "<html")

	if _, err := runCLI(t, env, "", "email", "preview", "--format", "pdf"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestEmailTestRequiresResendKey(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SaveFirm(t, env.store, "default")

	if _, err := runCLI(t, env, "", "email", "test"); err == nil {
		t.Fatal("expected missing e-mail configuration error")
	}
}

func TestVoicePayload(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SaveFirm(t, env.store, "default")

	out, err := runCLI(t, env, "", "voice", "payload")
	if err != nil {
		t.Fatalf("voice payload: %v", err)
	}
	var resp api.VoiceAgentResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode payload: %v\n%s", err, out)
	}
	if resp.Webhooks != nil {
		t.Fatalf("webhooks should be omitted without voice.app_url: %+v", resp.Webhooks)
	}
	requireContains(t, out, "Acme Heating")
}

func TestNotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "notify", "test")
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestStatusReportsDaemonState(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewCall(t, env.store, "default", testsupport.SampleRecord())

	out, err := runCLI(t, env, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "(read/write ok)")
	requireContains(t, out, "email.resend_api_key not set")
	requireContains(t, out, "Off (redis.url not set)")

	env.startDaemon(t)
	out, err = runCLI(t, env, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "Lane intake:")
	requireContains(t, out, "1 waiting, 0 in flight")
}
