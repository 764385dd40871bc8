package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9']+`)

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Truncate shortens value to limit runes and appends "..." when it was cut.
func Truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

// TitleWords capitalizes the first letter of each space separated word and
// lowercases the rest.
func TitleWords(value string) string {
	if value == "" {
		return value
	}
	caser := cases.Title(language.English)
	words := strings.Split(value, " ")
	for i, word := range words {
		words[i] = caser.String(word)
	}
	return strings.Join(words, " ")
}

// Tokenize lowercases text and splits it on anything that is not a letter,
// digit or apostrophe.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.Trim(token, "'")
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries,
// ignoring case and punctuation.
func ContainsPhrase(text, phrase string) bool {
	want := Tokenize(phrase)
	if len(want) == 0 {
		return false
	}
	have := Tokenize(text)
	for i := 0; i+len(want) <= len(have); i++ {
		matched := true
		for j, token := range want {
			if have[i+j] != token {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// ContainsAnyPhrase reports whether any of phrases occurs in text.
func ContainsAnyPhrase(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if ContainsPhrase(text, phrase) {
			return true
		}
	}
	return false
}
