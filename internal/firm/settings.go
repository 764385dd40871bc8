// Package firm holds per-tenant settings and their validation.
package firm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"airdesk/internal/intake"
	"airdesk/internal/services"
)

const (
	DefaultTimezone   = "America/New_York"
	DefaultOpenTime   = "09:00"
	DefaultCloseTime  = "17:00"
	DefaultAgentName  = "an AI assistant"
	clockLayout       = "15:04"
	maxKnowledgeBytes = 20000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var supportedTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
	"America/Anchorage",
	"Pacific/Honolulu",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Europe/Madrid",
	"Europe/Rome",
	"Asia/Dubai",
	"Asia/Tokyo",
	"Asia/Shanghai",
	"Asia/Hong_Kong",
	"Australia/Sydney",
	"Australia/Melbourne",
	"America/Toronto",
	"America/Vancouver",
	"America/Mexico_City",
	"America/Sao_Paulo",
}

// SupportedTimezones returns the selectable IANA zones.
func SupportedTimezones() []string {
	cp := make([]string, len(supportedTimezones))
	copy(cp, supportedTimezones)
	return cp
}

// Settings is the configuration a firm manages for its intake line.
type Settings struct {
	FirmID               string    `json:"firmId"`
	FirmName             string    `json:"firmName"`
	NotifyEmails         []string  `json:"notifyEmails"`
	Timezone             string    `json:"timezone"`
	BusinessHoursOpen    string    `json:"businessHoursOpen"`
	BusinessHoursClose   string    `json:"businessHoursClose"`
	AIGreeting           string    `json:"aiGreeting,omitempty"`
	KnowledgeBase        string    `json:"knowledgeBase,omitempty"`
	AgentName            string    `json:"agentName,omitempty"`
	ServiceFeeEnabled    bool      `json:"serviceFeeEnabled"`
	ServiceFee           float64   `json:"serviceFee,omitempty"`
	SendIncomplete       bool      `json:"sendIncomplete"`
	DefaultNextAvailable string    `json:"defaultNextAvailable,omitempty"`
	VoiceAssistantID     string    `json:"voiceAssistantId,omitempty"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Defaults returns settings for a firm that has not saved anything yet.
func Defaults(firmID string) Settings {
	return Settings{
		FirmID:             firmID,
		Timezone:           DefaultTimezone,
		BusinessHoursOpen:  DefaultOpenTime,
		BusinessHoursClose: DefaultCloseTime,
	}
}

// ParseEmails splits a comma or newline separated address list.
func ParseEmails(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Normalize trims values and fills defaults in place.
func (s *Settings) Normalize() {
	s.FirmID = strings.TrimSpace(s.FirmID)
	s.FirmName = strings.TrimSpace(s.FirmName)
	emails := make([]string, 0, len(s.NotifyEmails))
	seen := make(map[string]struct{}, len(s.NotifyEmails))
	for _, email := range s.NotifyEmails {
		email = strings.TrimSpace(email)
		key := strings.ToLower(email)
		if email == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	s.NotifyEmails = emails
	if s.Timezone = strings.TrimSpace(s.Timezone); s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if s.BusinessHoursOpen = strings.TrimSpace(s.BusinessHoursOpen); s.BusinessHoursOpen == "" {
		s.BusinessHoursOpen = DefaultOpenTime
	}
	if s.BusinessHoursClose = strings.TrimSpace(s.BusinessHoursClose); s.BusinessHoursClose == "" {
		s.BusinessHoursClose = DefaultCloseTime
	}
	s.AIGreeting = strings.TrimSpace(s.AIGreeting)
	s.KnowledgeBase = strings.TrimSpace(s.KnowledgeBase)
	s.AgentName = strings.TrimSpace(s.AgentName)
	s.DefaultNextAvailable = strings.TrimSpace(s.DefaultNextAvailable)
}

// FieldError describes one invalid setting.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid setting.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return "invalid firm settings: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match services.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// Validate checks the settings and returns a *ValidationError listing every
// problem, or nil.
func (s Settings) Validate() error {
	var problems []FieldError
	add := func(field, msg string) {
		problems = append(problems, FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(s.FirmID) == "" {
		add("firmId", "Firm ID is required")
	}
	if strings.TrimSpace(s.FirmName) == "" {
		add("firmName", "Business name is required")
	}

	var invalid []string
	valid := 0
	for _, email := range s.NotifyEmails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if !emailPattern.MatchString(email) {
			invalid = append(invalid, email)
			continue
		}
		valid++
	}
	switch {
	case len(invalid) > 0:
		add("notifyEmails", "Invalid emails: "+strings.Join(invalid, ", "))
	case valid == 0:
		add("notifyEmails", "At least one notification email is required")
	}

	if !isSupportedTimezone(s.Timezone) {
		add("timezone", fmt.Sprintf("Unsupported timezone %q", s.Timezone))
	} else if _, err := time.LoadLocation(s.Timezone); err != nil {
		add("timezone", fmt.Sprintf("Unknown timezone %q", s.Timezone))
	}

	open, openErr := time.Parse(clockLayout, s.BusinessHoursOpen)
	closing, closeErr := time.Parse(clockLayout, s.BusinessHoursClose)
	switch {
	case openErr != nil || closeErr != nil:
		add("businessHours", "Business hours must use HH:MM")
	case !open.Before(closing):
		add("businessHours", "Open time must be before close time")
	}

	if s.ServiceFeeEnabled && s.ServiceFee <= 0 {
		add("serviceFee", "Service fee must be greater than zero when enabled")
	}
	if s.ServiceFee < 0 {
		add("serviceFee", "Service fee cannot be negative")
	}
	if len(s.KnowledgeBase) > maxKnowledgeBytes {
		add("knowledgeBase", fmt.Sprintf("Knowledge base exceeds %d characters", maxKnowledgeBytes))
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Fields: problems}
}

func isSupportedTimezone(name string) bool {
	for _, tz := range supportedTimezones {
		if tz == name {
			return true
		}
	}
	return false
}

// IntakeContext returns the firm details used by the live intake script.
func (s Settings) IntakeContext() intake.FirmContext {
	return intake.FirmContext{
		BusinessName:         s.FirmName,
		AgentName:            s.AgentName,
		DefaultNextAvailable: s.DefaultNextAvailable,
		ServiceFeeEnabled:    s.ServiceFeeEnabled,
		ServiceFee:           s.ServiceFee,
	}
}

// IsOpen reports whether now falls within business hours in the firm's zone.
func (s Settings) IsOpen(now time.Time) bool {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return false
	}
	open, err1 := time.Parse(clockLayout, s.BusinessHoursOpen)
	closing, err2 := time.Parse(clockLayout, s.BusinessHoursClose)
	if errors.Join(err1, err2) != nil {
		return false
	}
	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= open.Hour()*60+open.Minute() && minutes < closing.Hour()*60+closing.Minute()
}
