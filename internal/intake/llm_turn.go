package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"airdesk/internal/logging"
	"airdesk/internal/services/llm"
)

const llmTurnTemperature = 0.3

// Chatter is the subset of the LLM client used for intake turns.
type Chatter interface {
	Chat(ctx context.Context, req llm.Request) (string, error)
}

type turnInput struct {
	State                State         `json:"state"`
	StateDescription     string        `json:"stateDescription"`
	Filled               Record        `json:"filled"`
	ConversationHistory  []Message     `json:"conversationHistory"`
	UserUtterance        string        `json:"userUtterance"`
	BusinessName         string        `json:"businessName"`
	AgentName            string        `json:"agentName"`
	DefaultNextAvailable string        `json:"defaultNextAvailable"`
	ServiceFeeEnabled    bool          `json:"serviceFeeEnabled"`
	ServiceCallFee       float64       `json:"serviceCallFee,omitempty"`
	CallerID             string        `json:"callerId,omitempty"`
	Reasks               map[State]int `json:"reasks,omitempty"`
}

// LLMTurn runs one turn through the chat model. The reply is validated and
// merged monotonically into the session; any failure falls back to Advance.
func LLMTurn(ctx context.Context, chatter Chatter, s *Session, utterance string, logger *slog.Logger) Turn {
	if s.Done {
		return s.Advance(utterance)
	}
	if chatter == nil || s.AgentMessages+1 >= MaxAgentMessages {
		return s.Advance(utterance)
	}
	if s.State == StateStart {
		s.Start()
	}
	logger = logging.NewComponentLogger(logger, "intake")

	turn, err := requestTurn(ctx, chatter, s, utterance)
	if err == nil {
		err = validateTurn(s, &turn)
	}
	if err != nil {
		logging.WarnWithContext(logger, "llm intake turn rejected; using rules", "intake_llm_fallback",
			logging.String("session_id", s.ID),
			logging.String("state", s.State.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm.api_key and model availability"),
			logging.String(logging.FieldImpact, "turn answered by rule-based script"),
		)
		return s.Advance(utterance)
	}
	return s.applyModelTurn(strings.TrimSpace(utterance), turn, logger)
}

func requestTurn(ctx context.Context, chatter Chatter, s *Session, utterance string) (Turn, error) {
	input := turnInput{
		State:                s.State,
		StateDescription:     stateDescriptions[s.State],
		Filled:               s.Record,
		ConversationHistory:  s.History,
		UserUtterance:        strings.TrimSpace(utterance),
		BusinessName:         s.Firm.businessName(),
		AgentName:            s.Firm.agentName(),
		DefaultNextAvailable: s.Firm.nextAvailable(),
		ServiceFeeEnabled:    s.Firm.ServiceFeeEnabled,
		ServiceCallFee:       s.Firm.ServiceFee,
		CallerID:             s.CallerID,
		Reasks:               s.Reasks,
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return Turn{}, fmt.Errorf("encode turn input: %w", err)
	}
	content, err := chatter.Chat(ctx, llm.Request{
		Op:          "intake turn",
		Temperature: llmTurnTemperature,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "system", Content: developerInstructions},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return Turn{}, err
	}
	var turn Turn
	if err := llm.DecodeLLMJSON(content, &turn); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// validateTurn rejects replies that would break the conversation order.
func validateTurn(s *Session, turn *Turn) error {
	if turn.Done {
		turn.NextState = StateClose
	}
	next, ok := ParseState(string(turn.NextState))
	if !ok || next == StateStart {
		return fmt.Errorf("invalid next_state %q", turn.NextState)
	}
	if next != StatePricing && next.position() < s.State.position() {
		return fmt.Errorf("next_state %s moves backward from %s", next, s.State)
	}
	if next == StatePricing && !s.Firm.ServiceFeeEnabled {
		return errors.New("pricing requested but service fee is disabled")
	}
	if next == s.State && s.Reasks[s.State] >= 1 {
		return fmt.Errorf("state %s already re-asked", next)
	}
	turn.NextState = next
	if strings.TrimSpace(turn.AssistantSay) == "" && next != StateClose {
		return errors.New("empty assistant_say")
	}
	if next != StatePricing && next != s.State {
		if state, ok := skippedState(s, turn.Updates, next); ok {
			return fmt.Errorf("next_state %s skips %s before it is collected", next, state)
		}
	}
	return nil
}

// skippedState returns the first state between the session's current state
// and next whose fields would still be missing after updates. The current
// state may be left open once it has been re-asked.
func skippedState(s *Session, updates map[string]any, next State) (State, bool) {
	after := s.Record
	_, _ = after.Apply(updates)
	from, to := s.State.position(), next.position()
	if from < 0 || to < from {
		return "", false
	}
	for _, state := range stateOrder[from:to] {
		if len(state.fields()) == 0 || state.satisfied(after) {
			continue
		}
		if state == s.State && s.Reasks[state] >= 1 {
			continue
		}
		return state, true
	}
	return "", false
}

func (s *Session) applyModelTurn(utterance string, turn Turn, logger *slog.Logger) Turn {
	s.hear(utterance)
	changed, err := s.Record.Apply(turn.Updates)
	if err != nil {
		logger.Debug("model returned unknown fields", logging.Error(err))
	}
	updates := make(map[string]any, len(changed))
	for field, value := range changed {
		if field == FieldNextAvailableOffered || field == FieldServiceFeeMentioned {
			updates[string(field)] = true
			continue
		}
		updates[string(field)] = value
	}
	if s.Reasks == nil {
		s.Reasks = make(map[State]int)
	}

	switch turn.NextState {
	case StatePricing:
		s.Record.ServiceFeeMentioned = true
		updates[string(FieldServiceFeeMentioned)] = true
	case StateClose:
		s.giveUp(updates)
		return s.close(updates)
	default:
		if turn.NextState == s.State {
			s.Reasks[s.State]++
		} else {
			s.giveUp(updates)
		}
		s.State = turn.NextState
	}
	return s.say(turn.AssistantSay, updates)
}

// giveUp records "unknown" for the current state's missing fields when the
// model moves on after a re-ask.
func (s *Session) giveUp(updates map[string]any) {
	if s.State.satisfied(s.Record) {
		return
	}
	for field, value := range s.absorb(unknownFor(s.State)) {
		updates[field] = value
	}
}
