package intake

import (
	"regexp"
	"strings"

	"airdesk/internal/textutil"
)

const (
	urgencyASAP    = "ASAP"
	urgencyCanWait = "can wait"
	categoryOther  = "Other"
	categoryNoHeat = "No heat"
	categoryNoCool = "No cool"
	maxBareNameLen = 4
	answerTrim     = " ,.;:!?-"
)

var (
	namePrefix  = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|this is|i'm|i am|it's|it is|call me)\s+(.+)$`)
	nameTrim    = regexp.MustCompile(`[^\p{L}\p{M}'\- ]+`)
	streetDigit = regexp.MustCompile(`\d`)
)

// Extractor maps single caller utterances onto record fields.
type Extractor struct {
	Scripts *Scripts
	// CallerID is the E.164 caller ID offered for confirmation, if any.
	CallerID string
	// DefaultNextAvailable fills requestedWindow when the caller accepts
	// the next available slot.
	DefaultNextAvailable string
}

func (e Extractor) scripts() *Scripts {
	if e.Scripts != nil {
		return e.Scripts
	}
	return DefaultScripts()
}

// Extract returns the values found in utterance for the given state. The
// boolean is false when nothing usable was said.
func (e Extractor) Extract(state State, utterance string) (Record, bool) {
	utterance = strings.TrimSpace(utterance)
	var out Record
	answer := e.answerPart(utterance)
	if answer == "" {
		return out, false
	}
	switch state {
	case StateIssueCapture:
		out.IssueCategory = e.Category(answer)
		out.IssueDescription = answer
		if e.isExtreme(out.IssueCategory, answer) {
			out.Urgency = urgencyASAP
		}
	case StateUrgencyCheck:
		out.Urgency = e.Urgency(answer)
	case StateCallerName:
		out.CallerName = e.Name(answer)
	case StateCallerPhone:
		// Confirmation is judged on the whole reply so a stripped
		// "not sure" cannot leave a bare "yeah" behind.
		out.CallerPhone = e.Phone(utterance)
	case StateAddress:
		out.AddressLine1, out.City, out.State = ParseAddress(answer)
	case StateScheduling:
		out.RequestedWindow, out.NextAvailableOffered = e.Window(answer)
	}
	out.FillAliases()
	for _, field := range state.fields() {
		if out.Has(field) {
			return out, true
		}
	}
	return out, false
}

// Category maps free text onto an issue category.
func (e Extractor) Category(text string) string {
	for _, rule := range e.scripts().Categories {
		if textutil.ContainsAnyPhrase(text, rule.Phrases) {
			return rule.Category
		}
	}
	return categoryOther
}

// Urgency classifies an answer to the urgency question.
func (e Extractor) Urgency(text string) string {
	keywords := e.scripts().Keywords
	switch {
	case textutil.ContainsAnyPhrase(text, keywords.CanWait):
		return urgencyCanWait
	case textutil.ContainsAnyPhrase(text, keywords.ASAP):
		return urgencyASAP
	case textutil.ContainsAnyPhrase(text, e.scripts().ExtremeWords):
		return urgencyASAP
	default:
		return ""
	}
}

// Name pulls a caller name from phrases such as "my name is Jane Doe" or a
// short bare reply.
func (e Extractor) Name(text string) string {
	candidate := text
	if match := namePrefix.FindStringSubmatch(text); match != nil {
		candidate = match[1]
	} else if len(strings.Fields(text)) > maxBareNameLen || e.isAffirmative(text) {
		return ""
	}
	if streetDigit.MatchString(candidate) {
		return ""
	}
	candidate = strings.Join(strings.Fields(nameTrim.ReplaceAllString(candidate, " ")), " ")
	if candidate == "" {
		return ""
	}
	return textutil.TitleWords(candidate)
}

// Phone returns an E.164 number spoken in text, or the caller ID when the
// caller confirms it.
func (e Extractor) Phone(text string) string {
	if phone, ok := textutil.NormalizePhone(text); ok {
		return phone
	}
	if e.CallerID != "" && e.confirms(text) {
		return e.CallerID
	}
	return ""
}

// confirms reports whether text is a yes. Any negation denies, except a bare
// "no" after a leading yes ("yes, no problem").
func (e Extractor) confirms(text string) bool {
	keywords := e.scripts().Keywords
	if !textutil.ContainsAnyPhrase(text, keywords.Affirmative) {
		return false
	}
	tokens := textutil.Tokenize(text)
	leadsYes := len(tokens) > 0 && containsToken(keywords.Affirmative, tokens[0])
	for _, token := range tokens {
		if !containsToken(keywords.Negative, token) {
			continue
		}
		if leadsYes && token == "no" {
			continue
		}
		return false
	}
	return true
}

// Window interprets a scheduling answer. "next available" style replies map
// to the firm default and report that the slot was offered.
func (e Extractor) Window(text string) (string, bool) {
	if textutil.ContainsAnyPhrase(text, e.scripts().Keywords.NextAvailable) {
		return textutil.FirstNonEmpty(e.DefaultNextAvailable, "next available"), true
	}
	return strings.TrimRight(text, ".!?"), false
}

// ParseAddress splits "line1, city[, state]". A reply without commas is kept
// as the street line only when it contains a house number.
func ParseAddress(text string) (line1, city, state string) {
	parts := strings.Split(text, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(strings.TrimSpace(part), "."); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	switch len(cleaned) {
	case 0:
		return "", "", ""
	case 1:
		if !streetDigit.MatchString(cleaned[0]) {
			return "", "", ""
		}
		return cleaned[0], "", ""
	case 2:
		return cleaned[0], cleaned[1], ""
	default:
		return cleaned[0], cleaned[1], strings.Join(cleaned[2:], " ")
	}
}

func (e Extractor) isExtreme(category, text string) bool {
	if category != categoryNoHeat && category != categoryNoCool {
		return false
	}
	return textutil.ContainsAnyPhrase(text, e.scripts().ExtremeWords)
}

func (e Extractor) isAffirmative(text string) bool {
	return textutil.ContainsAnyPhrase(text, e.scripts().Keywords.Affirmative)
}

// answerPart removes non-answer phrases such as "not sure" from utterance and
// returns the rest. It returns "" when nothing but filler is left.
func (e Extractor) answerPart(utterance string) string {
	keywords := e.scripts().Keywords
	tokens := textutil.Tokenize(utterance)
	if len(tokens) == 0 {
		return ""
	}
	whole := strings.Join(tokens, " ")
	for _, phrase := range keywords.NonAnswerOnly {
		if whole == strings.Join(textutil.Tokenize(phrase), " ") {
			return ""
		}
	}
	rest := utterance
	for _, phrase := range keywords.NonAnswer {
		if pattern := phrasePattern(phrase); pattern != nil {
			rest = pattern.ReplaceAllString(rest, "${1} ${2}")
		}
	}
	if rest != utterance {
		rest = strings.Trim(strings.Join(strings.Fields(rest), " "), answerTrim)
	}
	for _, token := range textutil.Tokenize(rest) {
		if !containsToken(keywords.Filler, token) {
			return rest
		}
	}
	return ""
}

// phrasePattern matches phrase case-insensitively on word boundaries with any
// run of spaces or punctuation between its words.
func phrasePattern(phrase string) *regexp.Regexp {
	words := textutil.Tokenize(phrase)
	if len(words) == 0 {
		return nil
	}
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}'])` + strings.Join(words, `[^\p{L}\p{N}']+`) + `($|[^\p{L}\p{N}'])`)
}

func containsToken(list []string, token string) bool {
	for _, item := range list {
		if item == token {
			return true
		}
	}
	return false
}

// isCostQuestion reports whether the caller asked about price.
func (e Extractor) isCostQuestion(text string) bool {
	return textutil.ContainsAnyPhrase(text, e.scripts().Keywords.Cost)
}

// isOffTopic reports whether text mentions an unrelated subject without any
// HVAC context.
func (e Extractor) isOffTopic(text string) bool {
	keywords := e.scripts().Keywords
	return textutil.ContainsAnyPhrase(text, keywords.OffTopic) && !textutil.ContainsAnyPhrase(text, keywords.HVAC)
}
