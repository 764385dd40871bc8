package intake

import (
	"strings"

	"github.com/google/uuid"

	"airdesk/internal/textutil"
)

// MaxAgentMessages caps how many times the assistant speaks in one call.
// The message that reaches the cap is always the closing line.
const MaxAgentMessages = 15

const (
	defaultBusinessName  = "our office"
	defaultAgentName     = "an AI assistant"
	defaultNextAvailable = "next available"
)

// FirmContext carries the tenant details the script needs.
type FirmContext struct {
	BusinessName         string  `json:"businessName,omitempty"`
	AgentName            string  `json:"agentName,omitempty"`
	DefaultNextAvailable string  `json:"defaultNextAvailable,omitempty"`
	ServiceFeeEnabled    bool    `json:"serviceFeeEnabled"`
	ServiceFee           float64 `json:"serviceCallFee,omitempty"`
}

func (f FirmContext) businessName() string {
	return textutil.FirstNonEmpty(f.BusinessName, defaultBusinessName)
}

func (f FirmContext) agentName() string {
	return textutil.FirstNonEmpty(f.AgentName, defaultAgentName)
}

func (f FirmContext) nextAvailable() string {
	return textutil.FirstNonEmpty(f.DefaultNextAvailable, defaultNextAvailable)
}

// Message is one line of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleAssistant = "assistant"
	RoleCaller    = "user"
)

// Turn is the result of one conversational step.
type Turn struct {
	AssistantSay string         `json:"assistant_say"`
	NextState    State          `json:"next_state"`
	Updates      map[string]any `json:"updates"`
	Done         bool           `json:"done"`
}

// Session is the serializable state of one live intake call.
type Session struct {
	ID            string        `json:"id"`
	Firm          FirmContext   `json:"firm"`
	State         State         `json:"state"`
	Record        Record        `json:"record"`
	History       []Message     `json:"history,omitempty"`
	Reasks        map[State]int `json:"reasks,omitempty"`
	AgentMessages int           `json:"agentMessages"`
	Done          bool          `json:"done"`
	// CallerID is the normalized caller ID awaiting confirmation.
	CallerID string `json:"callerId,omitempty"`
	AckIndex int    `json:"ackIndex"`

	scripts *Scripts
}

// NewSession creates a session positioned at START. A caller ID that looks
// like a phone number is kept as a confirmation candidate; it is not written
// to the record until the caller confirms it.
func NewSession(firm FirmContext, callerID string) *Session {
	session := &Session{
		ID:     uuid.NewString(),
		Firm:   firm,
		State:  StateStart,
		Reasks: make(map[State]int),
	}
	if phone, ok := textutil.NormalizePhone(callerID); ok {
		session.CallerID = phone
	}
	return session
}

// WithScripts overrides the script table, mainly for tests.
func (s *Session) WithScripts(scripts *Scripts) *Session {
	s.scripts = scripts
	return s
}

func (s *Session) table() *Scripts {
	if s.scripts != nil {
		return s.scripts
	}
	return DefaultScripts()
}

func (s *Session) extractor() Extractor {
	return Extractor{
		Scripts:              s.table(),
		CallerID:             s.CallerID,
		DefaultNextAvailable: s.Firm.nextAvailable(),
	}
}

// Start emits the greeting and moves to ISSUE_CAPTURE. Calling Start on a
// session that already started repeats the current question.
func (s *Session) Start() Turn {
	if s.State != StateStart {
		return s.say(s.question(s.State, false), nil)
	}
	s.State = StateIssueCapture
	return s.say(s.Firm.Render(s.table().Greeting), nil)
}

// Advance consumes one caller utterance and produces the assistant reply.
func (s *Session) Advance(utterance string) Turn {
	if s.Done {
		return Turn{NextState: StateClose, Done: true, Updates: map[string]any{}}
	}
	if s.State == StateStart {
		s.Start()
	}
	utterance = strings.TrimSpace(utterance)
	s.hear(utterance)
	if s.Reasks == nil {
		s.Reasks = make(map[State]int)
	}

	if s.AgentMessages+1 >= MaxAgentMessages {
		return s.close(nil)
	}

	ext := s.extractor()
	if ext.isOffTopic(utterance) {
		return s.say(s.table().Redirect, nil)
	}
	if s.Firm.ServiceFeeEnabled && !s.Record.ServiceFeeMentioned && ext.isCostQuestion(utterance) {
		return s.pricing()
	}

	found, ok := ext.Extract(s.State, utterance)
	if !ok {
		s.Reasks[s.State]++
		if s.Reasks[s.State] < 2 {
			return s.say(s.question(s.State, true), nil)
		}
		found = unknownFor(s.State)
	}

	updates := s.absorb(found)
	next := nextOpenState(s.State, s.Record)
	if next == StateClose {
		return s.close(updates)
	}
	s.State = next
	return s.say(s.ack()+" "+s.question(next, false), updates)
}

// Transcript renders the conversation history as "Agent:"/"Caller:" lines.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, msg := range s.History {
		speaker := "Agent"
		if msg.Role == RoleCaller {
			speaker = "Caller"
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

func (s *Session) pricing() Turn {
	s.Record.ServiceFeeMentioned = true
	line := s.Firm.Render(s.table().Pricing)
	if question := s.question(s.State, false); question != "" {
		line += " " + question
	}
	return s.say(line, map[string]any{string(FieldServiceFeeMentioned): true})
}

func (s *Session) close(updates map[string]any) Turn {
	s.State = StateClose
	s.Done = true
	turn := s.say(s.table().Closing, updates)
	turn.Done = true
	return turn
}

// absorb merges extracted values into the record and returns what changed.
func (s *Session) absorb(found Record) map[string]any {
	updates := make(map[string]any)
	for _, field := range Fields {
		value := found.Get(field)
		if !s.Record.Set(field, value) {
			continue
		}
		if field == FieldNextAvailableOffered || field == FieldServiceFeeMentioned {
			updates[string(field)] = true
			continue
		}
		updates[string(field)] = s.Record.Get(field)
	}
	s.Record.FillAliases()
	return updates
}

func unknownFor(state State) Record {
	var out Record
	for _, field := range state.fields() {
		out.Set(field, Unknown)
	}
	return out
}

// question returns the canonical line for state, or its rephrasing.
func (s *Session) question(state State, rephrase bool) string {
	script, ok := s.table().States[state]
	if !ok {
		return ""
	}
	line := script.Question
	switch {
	case rephrase && script.Rephrase != "":
		line = script.Rephrase
	case state == StateCallerPhone && s.CallerID != "" && script.Confirm != "":
		line = strings.ReplaceAll(script.Confirm, "{callerID}", textutil.FormatPhone(s.CallerID))
	}
	return s.Firm.Render(line)
}

func (s *Session) ack() string {
	acks := s.table().Acknowledgements
	line := acks[s.AckIndex%len(acks)]
	s.AckIndex++
	return line
}

func (s *Session) hear(utterance string) {
	if utterance == "" {
		return
	}
	s.History = append(s.History, Message{Role: RoleCaller, Content: utterance})
}

func (s *Session) say(line string, updates map[string]any) Turn {
	line = strings.TrimSpace(line)
	if line != "" {
		s.History = append(s.History, Message{Role: RoleAssistant, Content: line})
		s.AgentMessages++
	}
	if updates == nil {
		updates = map[string]any{}
	}
	return Turn{
		AssistantSay: line,
		NextState:    s.State,
		Updates:      updates,
		Done:         s.Done,
	}
}
