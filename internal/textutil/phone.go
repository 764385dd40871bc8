package textutil

import (
	"regexp"
	"strings"
)

// NotProvided is the placeholder shown for missing caller details.
const NotProvided = "Not provided"

var (
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
	usPhone       = regexp.MustCompile(`^\+?1?(\d{10})$`)
)

// Digits returns only the ASCII digits in value.
func Digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone converts a raw phone number to E.164. Ten digit numbers are
// treated as North American. The second return value is false when the
// input does not look like a phone number.
func NormalizePhone(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	digits := Digits(trimmed)
	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	case strings.HasPrefix(trimmed, "+") && len(digits) >= 8 && len(digits) <= 15:
		return "+" + digits, true
	default:
		return "", false
	}
}

// FormatPhone renders North American numbers as (XXX) XXX-XXXX and returns
// anything else unchanged.
func FormatPhone(phone string) string {
	if phone == "" || phone == NotProvided {
		return phone
	}
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	match := usPhone.FindStringSubmatch(cleaned)
	if match == nil {
		return phone
	}
	digits := match[1]
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// TelNumber returns the E.164 form used in tel: links, or "" when no number
// is available.
func TelNumber(phone string) string {
	if phone == "" || phone == NotProvided {
		return ""
	}
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if len(cleaned) == 11 && cleaned[0] == '1' {
		return "+" + cleaned
	}
	if len(cleaned) == 10 {
		return "+1" + cleaned
	}
	return "+" + cleaned
}
