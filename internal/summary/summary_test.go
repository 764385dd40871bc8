package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"airdesk/internal/classify"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/services/llm"
)

type stubChatter struct {
	reply    string
	err      error
	requests []llm.Request
}

func (s *stubChatter) Chat(_ context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

var record = intake.Record{
	IssueCategory: "No heat",
	Urgency:       "ASAP",
	CallerName:    "John Smith",
	CallerPhone:   "+13125550100",
	AddressLine1:  "1 Main St",
	City:          "Chicago",
	State:         "IL",
}

func TestSummarizeOverridesUrgencyAndClampsBullets(t *testing.T) {
	chatter := &stubChatter{reply: `{
		"title": "No Heat - John Smith - Chicago",
		"summary_bullets": ["1","2","3","4","5","6","7","8","9","10"],
		"key_facts": {"location": "Chicago, IL"},
		"action_items": ["Dispatch technician"],
		"urgency_level": "normal",
		"follow_up_recommendation": "Send someone today"
	}`}

	got := New(chatter, logging.NewNop()).Summarize(context.Background(), "Caller: no heat", record, false)
	if got.UrgencyLevel != classify.LevelHigh {
		t.Fatalf("urgency = %q, want high", got.UrgencyLevel)
	}
	if len(got.Bullets) != 8 || got.Bullets[7] != "8" {
		t.Fatalf("bullets not clamped: %v", got.Bullets)
	}
	if got.FollowUp != "Send someone today" || got.KeyFacts.Location != "Chicago, IL" {
		t.Fatalf("unexpected summary: %+v", got)
	}
	req := chatter.requests[0]
	if req.Temperature != 0.3 || req.Op != "summary" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Messages[1].Content, `"callerName": "John Smith"`) {
		t.Fatalf("intake data missing from prompt: %s", req.Messages[1].Content)
	}
}

func TestSummarizeFillsMissingParts(t *testing.T) {
	chatter := &stubChatter{reply: `{"summary_bullets": ["  ", ""], "urgency_level": "high"}`}
	rec := intake.Record{IssueCategory: "Leak", CallerName: "Amy"}

	got := New(chatter, logging.NewNop()).Summarize(context.Background(), "Caller: leak", rec, true)
	if got.UrgencyLevel != classify.LevelEmergencyRedirected {
		t.Fatalf("urgency = %q", got.UrgencyLevel)
	}
	if got.Title != "Leak - Amy - Unknown" || len(got.Bullets) != 5 {
		t.Fatalf("expected fallback title and bullets, got %+v", got)
	}
	if got.FollowUp != "Dispatch technician to service address" {
		t.Fatalf("unexpected follow up %q", got.FollowUp)
	}
}

func TestSummarizeFallsBack(t *testing.T) {
	want := Fallback(record, classify.LevelHigh)
	cases := []struct {
		name    string
		chatter Chatter
	}{
		{"no chatter", nil},
		{"llm error", &stubChatter{err: errors.New("503")}},
		{"bad json", &stubChatter{reply: "sorry"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := New(tc.chatter, logging.NewNop()).Summarize(context.Background(), "Caller: no heat", record, false)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallbackContent(t *testing.T) {
	got := Fallback(record, classify.LevelHigh)
	want := Summary{
		Title: "No heat - John Smith - Chicago",
		Bullets: []string{
			"Caller: John Smith",
			"Phone: +13125550100",
			"Issue: No heat",
			"Address: 1 Main St",
			"Urgency: ASAP",
		},
		KeyFacts:     KeyFacts{Location: "1 Main St, Chicago, IL"},
		ActionItems:  []string{"Dispatch technician", "Confirm appointment with caller"},
		UrgencyLevel: classify.LevelHigh,
		FollowUp:     "Dispatch technician to service address",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}

	empty := Fallback(intake.Record{}, classify.LevelNormal)
	if empty.Title != "Not specified - Unknown - Unknown" || empty.Bullets[1] != "Phone: Not provided" {
		t.Fatalf("unexpected empty fallback: %+v", empty)
	}
}

func TestParseRoundTrip(t *testing.T) {
	s := Fallback(record, classify.LevelNormal)
	parsed, ok := Parse(s.JSON())
	if !ok {
		t.Fatal("expected stored summary to parse")
	}
	if diff := cmp.Diff(s, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, ok := Parse(""); ok {
		t.Fatal("empty summary must not parse")
	}
}
