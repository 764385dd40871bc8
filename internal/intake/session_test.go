package intake

import (
	"encoding/json"
	"strings"
	"testing"
)

func testFirm() FirmContext {
	return FirmContext{
		BusinessName:         "Acme Heating",
		AgentName:            "Jessica",
		DefaultNextAvailable: "Tomorrow morning at 8:00 a.m.",
		ServiceFeeEnabled:    true,
		ServiceFee:           89,
	}
}

func TestSessionFullConversation(t *testing.T) {
	s := NewSession(testFirm(), "555-123-4567")
	if s.CallerID != "+15551234567" {
		t.Fatalf("expected normalized caller id, got %q", s.CallerID)
	}
	if s.Record.CallerPhone != "" {
		t.Fatal("caller id must not be recorded before confirmation")
	}

	steps := []struct {
		utterance string
		say       string
		state     State
	}{
		{"", "Thanks for calling Acme Heating. This is Jessica. What can we help you with today?", StateIssueCapture},
		{"My furnace is not working and my kids are freezing", "Thanks. What's your name?", StateCallerName},
		{"This is jane doe", "Got it. I have (555) 123-4567 - is that correct?", StateCallerPhone},
		{"Yes", "Understood. What's the service address?", StateAddress},
		{"How much is the service call?", "Our service call fee is $89. The final cost depends on what work is needed. Our technician will provide a quote after assessing the issue. What's the service address?", StateAddress},
		{"123 Main St, springfield, il", "I see. When would you like us to come out? We have Tomorrow morning at 8:00 a.m. available, or you can let me know your preference.", StateScheduling},
		{"next available works", "Thank you. Our team will call or text you shortly to confirm the appointment. Have a great day!", StateClose},
	}

	for i, step := range steps {
		var turn Turn
		if i == 0 {
			turn = s.Start()
		} else {
			turn = s.Advance(step.utterance)
		}
		if turn.AssistantSay != step.say {
			t.Fatalf("step %d: say = %q, want %q", i, turn.AssistantSay, step.say)
		}
		if turn.NextState != step.state {
			t.Fatalf("step %d: state = %s, want %s", i, turn.NextState, step.state)
		}
	}

	if !s.Done {
		t.Fatal("expected session to be done")
	}
	want := Record{
		IssueCategory:        "No heat",
		IssueDescription:     "My furnace is not working and my kids are freezing",
		Urgency:              "ASAP",
		CallerName:           "Jane Doe",
		CallerPhone:          "+15551234567",
		AddressLine1:         "123 Main St",
		City:                 "springfield",
		State:                "il",
		RequestedWindow:      "Tomorrow morning at 8:00 a.m.",
		NextAvailableOffered: true,
		ServiceFeeMentioned:  true,
		FullName:             "Jane Doe",
		CallbackNumber:       "+15551234567",
		ReasonForCall:        "My furnace is not working and my kids are freezing",
	}
	if s.Record != want {
		t.Fatalf("unexpected record:\n got %+v\nwant %+v", s.Record, want)
	}
}

func TestSessionRephrasesOnceThenRecordsUnknown(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	turn := s.Advance("There's no heat")
	if turn.NextState != StateUrgencyCheck {
		t.Fatalf("expected urgency check, got %s", turn.NextState)
	}
	if !strings.HasSuffix(turn.AssistantSay, "Is this something that needs attention ASAP, or can it wait?") {
		t.Fatalf("unexpected urgency question %q", turn.AssistantSay)
	}

	turn = s.Advance("I don't know")
	if turn.NextState != StateUrgencyCheck {
		t.Fatalf("first miss must stay in state, got %s", turn.NextState)
	}
	if turn.AssistantSay != DefaultScripts().States[StateUrgencyCheck].Rephrase {
		t.Fatalf("expected rephrase, got %q", turn.AssistantSay)
	}

	turn = s.Advance("hmm")
	if turn.NextState != StateCallerName {
		t.Fatalf("second miss must advance, got %s", turn.NextState)
	}
	if s.Record.Urgency != Unknown {
		t.Fatalf("expected unknown urgency, got %q", s.Record.Urgency)
	}
	if turn.Updates[string(FieldUrgency)] != Unknown {
		t.Fatalf("expected unknown in updates, got %v", turn.Updates)
	}
}

func TestSessionRequiredFieldDoesNotDeadEnd(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	s.Advance("no cool, it's an emergency")
	if s.State != StateCallerName {
		t.Fatalf("expected caller name state, got %s", s.State)
	}
	s.Advance("yes")
	turn := s.Advance("yes")
	if turn.NextState != StateCallerPhone || s.Record.CallerName != Unknown {
		t.Fatalf("expected unknown name and phone question, got %s %q", turn.NextState, s.Record.CallerName)
	}
}

func TestSessionRedirectsOffTopic(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	turn := s.Advance("Can you recommend a good lawyer?")
	if turn.AssistantSay != DefaultScripts().Redirect {
		t.Fatalf("expected redirect, got %q", turn.AssistantSay)
	}
	if turn.NextState != StateIssueCapture {
		t.Fatalf("redirect must not change state, got %s", turn.NextState)
	}
}

func TestSessionPricingOnlyOnceAndOnlyWhenEnabled(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	first := s.Advance("how much does it cost?")
	if !strings.HasPrefix(first.AssistantSay, "Our service call fee is $89.") {
		t.Fatalf("expected pricing line, got %q", first.AssistantSay)
	}
	if first.Updates[string(FieldServiceFeeMentioned)] != true {
		t.Fatalf("expected serviceFeeMentioned update, got %v", first.Updates)
	}
	second := s.Advance("how much does it cost?")
	if strings.Contains(second.AssistantSay, "service call fee") {
		t.Fatalf("pricing must only be given once, got %q", second.AssistantSay)
	}

	firm := testFirm()
	firm.ServiceFeeEnabled = false
	disabled := NewSession(firm, "")
	disabled.Start()
	if turn := disabled.Advance("what's the price?"); strings.Contains(turn.AssistantSay, "service call fee") {
		t.Fatalf("pricing disabled, got %q", turn.AssistantSay)
	}
}

func TestSessionSkipsFilledStates(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Record.CallerName = "Jane"
	s.Record.CallerPhone = "+15551234567"
	s.Start()
	turn := s.Advance("AC not working, it's an emergency")
	if turn.NextState != StateAddress {
		t.Fatalf("expected filled states to be skipped, got %s", turn.NextState)
	}
	if s.Record.IssueCategory != "No cool" || s.Record.Urgency != "ASAP" {
		t.Fatalf("unexpected record %+v", s.Record)
	}
	if s.AgentMessages != 2 {
		t.Fatalf("skipped states must not emit questions, messages=%d", s.AgentMessages)
	}
}

func TestSessionCapsAgentMessages(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	var last Turn
	for i := 0; i < 40 && !s.Done; i++ {
		last = s.Advance("I need a lawyer")
	}
	if !s.Done || !last.Done {
		t.Fatal("expected session to close at the message cap")
	}
	if s.AgentMessages != MaxAgentMessages {
		t.Fatalf("expected %d agent messages, got %d", MaxAgentMessages, s.AgentMessages)
	}
	if last.AssistantSay != DefaultScripts().Closing {
		t.Fatalf("last message must be the closing, got %q", last.AssistantSay)
	}
	if after := s.Advance("hello?"); !after.Done || after.AssistantSay != "" {
		t.Fatalf("finished session must stay closed, got %+v", after)
	}
}

func TestAcknowledgementsRotate(t *testing.T) {
	s := NewSession(testFirm(), "")
	var got []string
	for range 6 {
		got = append(got, s.ack())
	}
	want := []string{"Thanks.", "Got it.", "Understood.", "I see.", "Okay.", "Thanks."}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ack %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSessionRoundTripsJSON(t *testing.T) {
	s := NewSession(testFirm(), "5551234567")
	s.Start()
	s.Advance("no heat")
	s.Advance("I don't know")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Session
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.State != s.State || restored.Reasks[StateUrgencyCheck] != 1 || restored.CallerID != s.CallerID {
		t.Fatalf("restored session mismatch: %+v", restored)
	}
	turn := restored.Advance("it can wait")
	if restored.Record.Urgency != "can wait" || turn.NextState != StateCallerName {
		t.Fatalf("restored session did not continue: %+v", turn)
	}
}

func TestSessionTranscript(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	s.Advance("my furnace is not working")

	lines := strings.Split(s.Transcript(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 transcript lines, got %q", s.Transcript())
	}
	if !strings.HasPrefix(lines[0], "Agent: Thanks for calling Acme Heating.") {
		t.Fatalf("unexpected greeting line %q", lines[0])
	}
	if lines[1] != "Caller: my furnace is not working" {
		t.Fatalf("unexpected caller line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Agent: ") {
		t.Fatalf("unexpected agent line %q", lines[2])
	}
}

func TestSessionKeepsAnswersWrappedInHedges(t *testing.T) {
	s := NewSession(testFirm(), "")
	s.Start()
	turn := s.Advance("Not sure, AC is leaking")
	if turn.NextState != StateUrgencyCheck {
		t.Fatalf("expected urgency check after issue, got %s (%q)", turn.NextState, turn.AssistantSay)
	}
	if s.Record.IssueCategory != "AC" || s.Record.IssueDescription != "AC is leaking" {
		t.Fatalf("issue not recorded: %+v", s.Record)
	}
	if s.Reasks[StateIssueCapture] != 0 {
		t.Fatalf("answer must not count as a miss, got %d", s.Reasks[StateIssueCapture])
	}

	s.Advance("as soon as possible")
	s.Advance("Jane Doe")
	s.Advance("312 555 0199")
	turn = s.Advance("9 Elm St, Denver")
	if turn.NextState != StateScheduling {
		t.Fatalf("expected scheduling, got %s", turn.NextState)
	}
	turn = s.Advance("What about Tuesday morning?")
	if !turn.Done {
		t.Fatalf("expected close after window, got %s (%q)", turn.NextState, turn.AssistantSay)
	}
	if s.Record.RequestedWindow != "What about Tuesday morning" {
		t.Fatalf("unexpected window %q", s.Record.RequestedWindow)
	}
}

func TestSessionDeniedCallerIDIsNotRecorded(t *testing.T) {
	s := NewSession(testFirm(), "+1 312 555 0100")
	s.Start()
	s.Advance("no heat, freezing tonight")
	s.Advance("Jane Doe")
	if s.State != StateCallerPhone {
		t.Fatalf("expected phone state, got %s", s.State)
	}
	turn := s.Advance("That's not correct")
	if turn.NextState != StateCallerPhone || s.Record.CallerPhone != "" {
		t.Fatalf("denial must re-ask, got %s phone=%q", turn.NextState, s.Record.CallerPhone)
	}
	s.Advance("it's 312 555 0199")
	if s.Record.CallerPhone != "+13125550199" {
		t.Fatalf("expected spoken number, got %q", s.Record.CallerPhone)
	}
}
