package voice

import (
	"encoding/json"
	"fmt"
	"strings"

	"airdesk/internal/firm"
)

const (
	maxAssistantName = 40
	defaultBaseName  = "AirDesk"
)

const systemPromptTemplate = `You are a professional HVAC phone receptionist for %s.

Rules:
- One question at a time
- Short sentences (under 15 words when possible)
- Always acknowledge before asking
- Never promise an exact appointment time - always say "Our team will call/text shortly to confirm the appointment"
- Never promise a total price - only mention service call fee if asked, with disclaimer that final cost depends on the work needed
- If caller asks about medical/legal/anything unrelated to HVAC: politely redirect to HVAC service
- Wait for the caller to finish speaking completely before responding - NEVER interrupt
- When you have collected all necessary information (name, phone, address, issue, scheduling preference), say goodbye and end the call
- End the call by saying: "Thank you. Our team will call or text you shortly to confirm the appointment. Have a great day!"
- After saying goodbye, the call will automatically end`

// Message is one model prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Model configures the agent LLM.
type Model struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
	Messages    []Message `json:"messages"`
}

// Voice selects the speech synthesizer.
type Voice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// Transcriber selects speech recognition.
type Transcriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// StopSpeakingPlan controls when the agent yields to the caller.
type StopSpeakingPlan struct {
	NumWords       int     `json:"numWords"`
	VoiceSeconds   float64 `json:"voiceSeconds"`
	BackoffSeconds float64 `json:"backoffSeconds"`
}

// Agent is the assistant payload.
type Agent struct {
	Name             string           `json:"name,omitempty"`
	Model            Model            `json:"model"`
	Voice            Voice            `json:"voice"`
	Transcriber      Transcriber      `json:"transcriber"`
	FirstMessage     string           `json:"firstMessage"`
	StopSpeakingPlan StopSpeakingPlan `json:"stopSpeakingPlan"`
}

// BuildAgent renders the assistant for a firm.
func BuildAgent(settings firm.Settings) Agent {
	business := strings.TrimSpace(settings.FirmName)
	agentName := strings.TrimSpace(settings.AgentName)
	if agentName == "" {
		agentName = firm.DefaultAgentName
	}

	greeting := fmt.Sprintf("Thank you for calling %s. This is %s. How can I help you with your HVAC needs today?", business, agentName)
	if custom := strings.TrimSpace(settings.AIGreeting); custom != "" {
		greeting = strings.NewReplacer("{{business_name}}", business, "{{agent_name}}", agentName).Replace(custom)
	}

	prompt := fmt.Sprintf(systemPromptTemplate, business)
	if kb := strings.TrimSpace(settings.KnowledgeBase); kb != "" {
		prompt += "\n\nBusiness Information:\n" + kb
	}

	return Agent{
		Name: AssistantName(business, "Receptionist"),
		Model: Model{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			MaxTokens:   180,
			Messages:    []Message{{Role: "system", Content: prompt}},
		},
		Voice:        Voice{Provider: "deepgram", VoiceID: "asteria"},
		Transcriber:  Transcriber{Provider: "deepgram", Model: "nova-2"},
		FirstMessage: greeting,
		StopSpeakingPlan: StopSpeakingPlan{
			NumWords:       5,
			VoiceSeconds:   0.5,
			BackoffSeconds: 2.0,
		},
	}
}

// Payload converts the agent to a cleaned JSON object.
func (a Agent) Payload() (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode agent: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode agent: %w", err)
	}
	return Clean(payload), nil
}

// Clean drops nil values and recursively removes nested objects that end up
// empty. Slices are kept as they are.
func Clean(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]any:
			if nested := Clean(v); len(nested) > 0 {
				out[key] = nested
			}
		default:
			out[key] = v
		}
	}
	return out
}

// AssistantName joins the business name and suffix, keeping the result within
// the host's 40 character limit by shortening the business part.
func AssistantName(businessName, suffix string) string {
	base := strings.TrimSpace(businessName)
	if base == "" {
		base = defaultBaseName
	}
	sfx := strings.TrimSpace(suffix)
	raw := strings.TrimSpace(base + " " + sfx)
	if len([]rune(raw)) <= maxAssistantName {
		return raw
	}
	tail := " " + sfx
	keep := max(0, maxAssistantName-len([]rune(tail))-3)
	short := strings.TrimSpace(string([]rune(base)[:min(keep, len([]rune(base)))]))
	name := []rune(short + "..." + tail)
	if len(name) > maxAssistantName {
		name = name[:maxAssistantName]
	}
	return string(name)
}

// Webhooks are the telephony callback URLs.
type Webhooks struct {
	Voice  string `json:"voiceUrl"`
	Status string `json:"statusUrl"`
}

// WebhookURLs derives the webhook URLs from the public app URL. It returns
// an error when the URL is empty or not absolute.
func WebhookURLs(appURL string) (Webhooks, error) {
	base := strings.TrimRight(strings.TrimSpace(appURL), "/")
	if base == "" {
		return Webhooks{}, fmt.Errorf("voice.app_url is not configured")
	}
	if !strings.HasPrefix(base, "https://") && !strings.HasPrefix(base, "http://") {
		base = "https://" + base
	}
	return Webhooks{
		Voice:  base + "/api/twilio/voice",
		Status: base + "/api/twilio/status",
	}, nil
}
