package intake

import "strings"

// State identifies a step in the intake conversation.
type State string

const (
	StateStart        State = "START"
	StateIssueCapture State = "ISSUE_CAPTURE"
	StateUrgencyCheck State = "URGENCY_CHECK"
	StateCallerName   State = "CALLER_NAME"
	StateCallerPhone  State = "CALLER_PHONE"
	StateAddress      State = "ADDRESS"
	StateScheduling   State = "SCHEDULING"
	StatePricing      State = "PRICING"
	StateClose        State = "CLOSE"
)

// stateOrder is the fixed conversation sequence. PRICING is a detour and is
// never part of it.
var stateOrder = []State{
	StateStart,
	StateIssueCapture,
	StateUrgencyCheck,
	StateCallerName,
	StateCallerPhone,
	StateAddress,
	StateScheduling,
	StateClose,
}

// ParseState converts a string into a State. Matching ignores case and
// surrounding whitespace.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == StatePricing {
		return normalized, true
	}
	for _, state := range stateOrder {
		if state == normalized {
			return state, true
		}
	}
	return "", false
}

func (s State) String() string {
	return string(s)
}

func (s State) position() int {
	for i, state := range stateOrder {
		if state == s {
			return i
		}
	}
	return -1
}

// fields lists the record fields a state collects.
func (s State) fields() []Field {
	switch s {
	case StateIssueCapture:
		return []Field{FieldIssueCategory}
	case StateUrgencyCheck:
		return []Field{FieldUrgency}
	case StateCallerName:
		return []Field{FieldCallerName}
	case StateCallerPhone:
		return []Field{FieldCallerPhone}
	case StateAddress:
		return []Field{FieldAddressLine1, FieldCity}
	case StateScheduling:
		return []Field{FieldRequestedWindow}
	default:
		return nil
	}
}

// satisfied reports whether record already holds every field the state
// collects.
func (s State) satisfied(record Record) bool {
	fields := s.fields()
	if len(fields) == 0 {
		return false
	}
	for _, field := range fields {
		if !record.Has(field) {
			return false
		}
	}
	return true
}

// nextOpenState returns the first state after from whose fields are still
// missing. CLOSE is returned when everything is collected.
func nextOpenState(from State, record Record) State {
	pos := from.position()
	if pos < 0 {
		pos = 0
	}
	for _, state := range stateOrder[pos+1:] {
		if state == StateClose || !state.satisfied(record) {
			return state
		}
	}
	return StateClose
}
