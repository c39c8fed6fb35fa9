package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// Text strips every tag and returns trimmed plain text. Entities the policy
// escapes are decoded again so "Food & Music" survives a round trip.
// Use for: titles, locations, categories.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// HTML keeps safe formatting tags and drops scripts, handlers and styles.
// Use for: event descriptions.
func HTML(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// TextPtr applies Text to an optional field.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Text(*input)
	return &value
}

// HTMLPtr applies HTML to an optional field.
func HTMLPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := HTML(*input)
	return &value
}
