// Package summary produces the dispatcher-facing call summary stored on each
// ticket. A rule-based fallback stands in whenever the model is unavailable.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"airdesk/internal/classify"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/services/llm"
	"airdesk/internal/textutil"
)

const (
	temperature = 0.3
	maxBullets  = 8
)

const systemPrompt = "You summarize HVAC service calls for a dispatch team. Reply with a single JSON object and nothing else."

const promptTemplate = `Summarize this HVAC service call for the dispatch team.

Transcript:
%s

Intake data:
%s

Return a JSON object with exactly this structure:
{
  "title": "short title, e.g. \"No Heat - John Doe - Chicago\"",
  "summary_bullets": ["5 to 8 short points about the service request"],
  "key_facts": {
    "incident_date": "when the problem started, if mentioned",
    "location": "service address (city, state), if known"
  },
  "action_items": ["recommended next steps, e.g. \"Dispatch technician\""],
  "urgency_level": "normal" | "high" | "emergency_redirected",
  "follow_up_recommendation": "one sentence for the dispatcher"
}

Cover the service issue, the address, urgency, scheduling preference and any special notes.
Be concise and professional.`

var fallbackActions = []string{"Dispatch technician", "Confirm appointment with caller"}

const fallbackFollowUp = "Dispatch technician to service address"

// KeyFacts are the structured facts pulled out of a call.
type KeyFacts struct {
	IncidentDate string `json:"incident_date,omitempty"`
	Location     string `json:"location,omitempty"`
}

// Summary is the structured call summary.
type Summary struct {
	Title        string         `json:"title"`
	Bullets      []string       `json:"summary_bullets"`
	KeyFacts     KeyFacts       `json:"key_facts"`
	ActionItems  []string       `json:"action_items"`
	UrgencyLevel classify.Level `json:"urgency_level"`
	FollowUp     string         `json:"follow_up_recommendation"`
}

// JSON encodes the summary for storage on a ticket.
func (s Summary) JSON() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// Parse decodes a stored summary. It reports false for empty or invalid input.
func Parse(raw string) (Summary, bool) {
	if strings.TrimSpace(raw) == "" {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Summary{}, false
	}
	return s, true
}

// Chatter is the LLM surface summarization needs.
type Chatter interface {
	Chat(ctx context.Context, req llm.Request) (string, error)
}

// Summarizer builds call summaries.
type Summarizer struct {
	chatter Chatter
	logger  *slog.Logger
}

// New constructs a Summarizer. A nil chatter always yields the fallback.
func New(chatter Chatter, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		chatter: chatter,
		logger:  logging.NewComponentLogger(logger, "summary"),
	}
}

// Summarize asks the model for a summary and post-processes it. The urgency
// level always follows the classification rules. Any failure yields Fallback.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, record intake.Record, emergencyRedirected bool) Summary {
	level := classify.UrgencyLevel(record.IssueCategory, record.Urgency, emergencyRedirected)
	if !s.enabled() || strings.TrimSpace(transcript) == "" {
		return Fallback(record, level)
	}
	logger := logging.WithContext(ctx, s.logger)

	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Fallback(record, level)
	}
	content, err := s.chatter.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, transcript, recordJSON)},
		},
		Temperature: temperature,
		Op:          "summary",
	})
	if err != nil {
		logging.WarnWithContext(logger, "call summary failed", "summary_llm_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ticket carries the rule-based summary"),
			logging.String(logging.FieldErrorHint, "check llm.api_key and llm.base_url"),
		)
		return Fallback(record, level)
	}

	var parsed Summary
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		logging.WarnWithContext(logger, "call summary returned invalid json", "summary_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ticket carries the rule-based summary"),
			logging.String(logging.FieldErrorHint, "model did not follow the JSON contract; retry or change llm.model"),
		)
		return Fallback(record, level)
	}
	return finalize(parsed, record, level)
}

func (s *Summarizer) enabled() bool {
	if s == nil || s.chatter == nil {
		return false
	}
	if toggle, ok := s.chatter.(interface{ Enabled() bool }); ok {
		return toggle.Enabled()
	}
	return true
}

func finalize(parsed Summary, record intake.Record, level classify.Level) Summary {
	fallback := Fallback(record, level)
	parsed.UrgencyLevel = level
	if strings.TrimSpace(parsed.Title) == "" {
		parsed.Title = fallback.Title
	}
	bullets := parsed.Bullets[:0]
	for _, bullet := range parsed.Bullets {
		if bullet = strings.TrimSpace(bullet); bullet != "" {
			bullets = append(bullets, bullet)
		}
	}
	if len(bullets) > maxBullets {
		bullets = bullets[:maxBullets]
	}
	if len(bullets) == 0 {
		bullets = fallback.Bullets
	}
	parsed.Bullets = bullets
	if len(parsed.ActionItems) == 0 {
		parsed.ActionItems = fallback.ActionItems
	}
	if strings.TrimSpace(parsed.FollowUp) == "" {
		parsed.FollowUp = fallback.FollowUp
	}
	if parsed.KeyFacts.Location == "" {
		parsed.KeyFacts.Location = fallback.KeyFacts.Location
	}
	return parsed
}

// Fallback builds a summary from the intake record alone.
func Fallback(record intake.Record, level classify.Level) Summary {
	name := textutil.FirstNonEmpty(record.Name(), "Unknown")
	issue := textutil.FirstNonEmpty(record.Issue(), "Not specified")
	city := textutil.FirstNonEmpty(strings.TrimSpace(record.City), "Unknown")

	var location string
	if strings.TrimSpace(record.City) != "" {
		location = record.Address()
	}

	actions := make([]string, len(fallbackActions))
	copy(actions, fallbackActions)
	return Summary{
		Title: fmt.Sprintf("%s - %s - %s", issue, name, city),
		Bullets: []string{
			"Caller: " + name,
			"Phone: " + textutil.FirstNonEmpty(record.Phone(), textutil.NotProvided),
			"Issue: " + issue,
			"Address: " + textutil.FirstNonEmpty(strings.TrimSpace(record.AddressLine1), textutil.NotProvided),
			"Urgency: " + textutil.FirstNonEmpty(record.Urgency, "Not specified"),
		},
		KeyFacts:     KeyFacts{Location: location},
		ActionItems:  actions,
		UrgencyLevel: level,
		FollowUp:     fallbackFollowUp,
	}
}
