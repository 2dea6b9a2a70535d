// Package lang validates language hints sent to the transcription service
// and reconciles the languages reported back by independent chunk calls.
package lang

import (
	"fmt"
	"strings"
)

// validLanguages contains ISO 639-1 codes accepted as transcription hints.
// Not exhaustive; covers the languages the transcription API documents.
var validLanguages = map[string]bool{
	"ar": true, // Arabic
	"cs": true, // Czech
	"da": true, // Danish
	"de": true, // German
	"el": true, // Greek
	"en": true, // English
	"es": true, // Spanish
	"fi": true, // Finnish
	"fr": true, // French
	"he": true, // Hebrew
	"hi": true, // Hindi
	"hu": true, // Hungarian
	"id": true, // Indonesian
	"it": true, // Italian
	"ja": true, // Japanese
	"ko": true, // Korean
	"nl": true, // Dutch
	"no": true, // Norwegian
	"pl": true, // Polish
	"pt": true, // Portuguese
	"ro": true, // Romanian
	"ru": true, // Russian
	"sv": true, // Swedish
	"th": true, // Thai
	"tr": true, // Turkish
	"uk": true, // Ukrainian
	"vi": true, // Vietnamese
	"zh": true, // Chinese
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// BaseCode returns the ISO 639-1 base of a possibly regional code.
// "pt-br" -> "pt"; "" -> "" (auto-detect).
func BaseCode(code string) string {
	normalized := Normalize(code)
	base, _, _ := strings.Cut(normalized, "-")
	return base
}

// Validate checks a language hint. Empty means auto-detect and is valid.
// Accepts ISO 639-1 codes (e.g., "en") and locales (e.g., "pt-BR").
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if !validLanguages[BaseCode(code)] {
		return fmt.Errorf("%w: %q", ErrInvalid, code)
	}
	return nil
}

// Majority returns the most frequent language among per-chunk detections,
// ignoring empty entries. Ties are broken by earliest first occurrence, so
// the first chunk's language wins when counts are equal. Returns "" when no
// chunk reported a language.
func Majority(codes []string) string {
	counts := make(map[string]int, len(codes))
	var order []string
	for _, c := range codes {
		c = Normalize(c)
		if c == "" {
			continue
		}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := ""
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}
