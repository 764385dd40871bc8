package intake

import (
	"fmt"
	"strconv"
	"strings"

	"airdesk/internal/textutil"
)

// Unknown is recorded when a caller could not answer after a rephrase.
const Unknown = "unknown"

// Field names a Record value using its JSON key.
type Field string

const (
	FieldIssueCategory        Field = "issueCategory"
	FieldIssueDescription     Field = "issueDescription"
	FieldUrgency              Field = "urgency"
	FieldCallerName           Field = "callerName"
	FieldCallerPhone          Field = "callerPhone"
	FieldAddressLine1         Field = "addressLine1"
	FieldCity                 Field = "city"
	FieldState                Field = "state"
	FieldRequestedWindow      Field = "requestedWindow"
	FieldNextAvailableOffered Field = "nextAvailableOffered"
	FieldServiceFeeMentioned  Field = "serviceFeeMentioned"
	FieldFullName             Field = "full_name"
	FieldCallbackNumber       Field = "callback_number"
	FieldReasonForCall        Field = "reason_for_call"
)

// Fields lists every record field in display order.
var Fields = []Field{
	FieldIssueCategory,
	FieldIssueDescription,
	FieldUrgency,
	FieldCallerName,
	FieldCallerPhone,
	FieldAddressLine1,
	FieldCity,
	FieldState,
	FieldRequestedWindow,
	FieldNextAvailableOffered,
	FieldServiceFeeMentioned,
	FieldFullName,
	FieldCallbackNumber,
	FieldReasonForCall,
}

// ParseField resolves a JSON key into a Field.
func ParseField(name string) (Field, bool) {
	trimmed := strings.TrimSpace(name)
	for _, field := range Fields {
		if string(field) == trimmed {
			return field, true
		}
	}
	return "", false
}

// Record holds the values collected about a call. Values are only ever added;
// a filled field is never cleared.
type Record struct {
	IssueCategory        string `json:"issueCategory,omitempty"`
	IssueDescription     string `json:"issueDescription,omitempty"`
	Urgency              string `json:"urgency,omitempty"`
	CallerName           string `json:"callerName,omitempty"`
	CallerPhone          string `json:"callerPhone,omitempty"`
	AddressLine1         string `json:"addressLine1,omitempty"`
	City                 string `json:"city,omitempty"`
	State                string `json:"state,omitempty"`
	RequestedWindow      string `json:"requestedWindow,omitempty"`
	NextAvailableOffered bool   `json:"nextAvailableOffered,omitempty"`
	ServiceFeeMentioned  bool   `json:"serviceFeeMentioned,omitempty"`

	FullName       string `json:"full_name,omitempty"`
	CallbackNumber string `json:"callback_number,omitempty"`
	ReasonForCall  string `json:"reason_for_call,omitempty"`
}

func (r *Record) text(field Field) *string {
	switch field {
	case FieldIssueCategory:
		return &r.IssueCategory
	case FieldIssueDescription:
		return &r.IssueDescription
	case FieldUrgency:
		return &r.Urgency
	case FieldCallerName:
		return &r.CallerName
	case FieldCallerPhone:
		return &r.CallerPhone
	case FieldAddressLine1:
		return &r.AddressLine1
	case FieldCity:
		return &r.City
	case FieldState:
		return &r.State
	case FieldRequestedWindow:
		return &r.RequestedWindow
	case FieldFullName:
		return &r.FullName
	case FieldCallbackNumber:
		return &r.CallbackNumber
	case FieldReasonForCall:
		return &r.ReasonForCall
	default:
		return nil
	}
}

func (r *Record) flag(field Field) *bool {
	switch field {
	case FieldNextAvailableOffered:
		return &r.NextAvailableOffered
	case FieldServiceFeeMentioned:
		return &r.ServiceFeeMentioned
	default:
		return nil
	}
}

// Get returns the value of field. Flags render as "true" or "".
func (r Record) Get(field Field) string {
	if ptr := r.text(field); ptr != nil {
		return *ptr
	}
	if ptr := r.flag(field); ptr != nil && *ptr {
		return "true"
	}
	return ""
}

// Has reports whether field holds a value.
func (r Record) Has(field Field) bool {
	return strings.TrimSpace(r.Get(field)) != ""
}

// Set stores value in field and reports whether the record changed. Empty
// values never overwrite, "unknown" never replaces a real answer, and flags
// can only be switched on.
func (r *Record) Set(field Field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if ptr := r.flag(field); ptr != nil {
		on, err := strconv.ParseBool(value)
		if err != nil || !on || *ptr {
			return false
		}
		*ptr = true
		return true
	}
	ptr := r.text(field)
	if ptr == nil {
		return false
	}
	current := strings.TrimSpace(*ptr)
	if current == value {
		return false
	}
	if strings.EqualFold(value, Unknown) && current != "" {
		return false
	}
	*ptr = value
	return true
}

// Apply merges loosely typed updates, as produced by a model reply, into the
// record. It returns the fields that changed; unknown keys are reported as
// errors but do not stop the merge.
func (r *Record) Apply(updates map[string]any) (map[Field]string, error) {
	changed := make(map[Field]string)
	var unknown []string
	for key, raw := range updates {
		field, ok := ParseField(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		value := stringify(raw)
		if r.Set(field, value) {
			changed[field] = r.Get(field)
		}
	}
	r.FillAliases()
	if len(unknown) > 0 {
		return changed, fmt.Errorf("unknown record fields: %s", strings.Join(unknown, ", "))
	}
	return changed, nil
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// FillAliases keeps the legacy snake_case fields and their camelCase
// counterparts in step, filling whichever side is empty.
func (r *Record) FillAliases() {
	pairs := [][2]Field{
		{FieldCallerName, FieldFullName},
		{FieldCallerPhone, FieldCallbackNumber},
		{FieldIssueDescription, FieldReasonForCall},
	}
	for _, pair := range pairs {
		r.Set(pair[1], r.Get(pair[0]))
		r.Set(pair[0], r.Get(pair[1]))
	}
}

// Merge returns existing with any missing values taken from incoming.
// Existing values always win and empty incoming values are dropped. An
// existing "unknown" counts as missing.
func Merge(existing, incoming Record) Record {
	merged := existing
	for _, field := range Fields {
		if merged.Has(field) && !strings.EqualFold(merged.Get(field), Unknown) {
			continue
		}
		merged.Set(field, incoming.Get(field))
	}
	merged.FillAliases()
	return merged
}

// Name returns the caller name, falling back to the legacy alias.
func (r Record) Name() string {
	return textutil.FirstNonEmpty(r.CallerName, r.FullName)
}

// Phone returns the callback number, falling back to the legacy alias.
func (r Record) Phone() string {
	return textutil.FirstNonEmpty(r.CallerPhone, r.CallbackNumber)
}

// Issue returns the best available issue text.
func (r Record) Issue() string {
	return textutil.FirstNonEmpty(r.IssueCategory, r.IssueDescription, r.ReasonForCall)
}

// Address joins the address parts with ", ".
func (r Record) Address() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{r.AddressLine1, r.City, r.State} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
