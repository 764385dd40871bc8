// Package extract turns a finished call transcript into an intake record with
// one JSON-mode LLM call. Extraction is best effort: every failure returns the
// record the call already had.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/services/llm"
)

const temperature = 0.1

const systemPrompt = "You extract structured data from HVAC service call transcripts. Reply with a single JSON object and nothing else."

const promptTemplate = `Read this HVAC service call transcript and extract the caller's details.

Transcript:
%s

Return a JSON object with exactly these keys. Use null for anything the caller did not clearly say:
{
  "callerName": "full name, e.g. \"John Smith\"",
  "callerPhone": "phone number in any format",
  "addressLine1": "street address, e.g. \"123 Pennsylvania Avenue\"",
  "city": "city name",
  "state": "two-letter state abbreviation, e.g. \"PA\"",
  "issueCategory": "one of \"No heat\", \"No cool\", \"Furnace\", \"AC\", \"Thermostat\", \"Strange noise\", \"Leak\", \"Other\"",
  "issueDescription": "what is wrong with the system, in the caller's terms",
  "urgency": "\"ASAP\" or \"can wait\"",
  "requestedWindow": "preferred appointment time, e.g. \"Tomorrow morning\" or \"Next week\""
}

Names usually follow "my name is", "I'm" or "this is", or answer the agent asking for a name.
Only extract what is stated in the transcript.`

// Chatter is the LLM surface extraction needs.
type Chatter interface {
	Chat(ctx context.Context, req llm.Request) (string, error)
}

type payload struct {
	CallerName       string `json:"callerName"`
	CallerPhone      string `json:"callerPhone"`
	AddressLine1     string `json:"addressLine1"`
	City             string `json:"city"`
	State            string `json:"state"`
	IssueCategory    string `json:"issueCategory"`
	IssueDescription string `json:"issueDescription"`
	Urgency          string `json:"urgency"`
	RequestedWindow  string `json:"requestedWindow"`
}

func (p payload) record() intake.Record {
	return intake.Record{
		CallerName:       p.CallerName,
		CallerPhone:      p.CallerPhone,
		AddressLine1:     p.AddressLine1,
		City:             p.City,
		State:            p.State,
		IssueCategory:    p.IssueCategory,
		IssueDescription: p.IssueDescription,
		Urgency:          p.Urgency,
		RequestedWindow:  p.RequestedWindow,
	}
}

// Extractor extracts intake records from transcripts.
type Extractor struct {
	chatter Chatter
	logger  *slog.Logger
}

// New constructs an Extractor. A nil chatter disables extraction.
func New(chatter Chatter, logger *slog.Logger) *Extractor {
	return &Extractor{
		chatter: chatter,
		logger:  logging.NewComponentLogger(logger, "extract"),
	}
}

// Extract returns existing merged with whatever the model found in the
// transcript. Existing values win; the call never fails.
func (e *Extractor) Extract(ctx context.Context, transcript string, existing intake.Record) intake.Record {
	if strings.TrimSpace(transcript) == "" {
		return existing
	}
	if !e.enabled() {
		e.logger.Debug("extraction skipped; llm not configured")
		return existing
	}
	logger := logging.WithContext(ctx, e.logger)

	content, err := e.chatter.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, transcript)},
		},
		Temperature: temperature,
		Op:          "extract",
	})
	if err != nil {
		logging.WarnWithContext(logger, "transcript extraction failed", "extract_llm_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ticket uses the details captured during the call"),
			logging.String(logging.FieldErrorHint, "check llm.api_key and llm.base_url"),
		)
		return existing
	}

	var parsed payload
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		logging.WarnWithContext(logger, "transcript extraction returned invalid json", "extract_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ticket uses the details captured during the call"),
			logging.String(logging.FieldErrorHint, "model did not follow the JSON contract; retry or change llm.model"),
		)
		return existing
	}

	merged := intake.Merge(existing, parsed.record())
	logger.Info("transcript extracted",
		logging.String(logging.FieldEventType, "extract_complete"),
		logging.Bool("has_name", merged.Name() != ""),
		logging.Bool("has_phone", merged.Phone() != ""),
		logging.Bool("has_address", merged.AddressLine1 != ""),
		logging.Bool("has_issue", merged.Issue() != ""),
	)
	return merged
}

func (e *Extractor) enabled() bool {
	if e == nil || e.chatter == nil {
		return false
	}
	if toggle, ok := e.chatter.(interface{ Enabled() bool }); ok {
		return toggle.Enabled()
	}
	return true
}
