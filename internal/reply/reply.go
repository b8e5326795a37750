// Package reply parses raw assistant responses into prose, an optional
// embedded code block, and an optional list of suggested next steps.
package reply

import (
	"regexp"
	"strings"
)

// Reply is the parsed form of one assistant response.
//
// Code is empty when no fenced block was found. Suggestions is nil when no
// suggestions section was found; the parser never produces an empty non-nil
// slice, so nil unambiguously means "none offered".
type Reply struct {
	Content     string
	Code        string
	Suggestions []string
}

var (
	// A fenced block: triple backticks, optional language tag, body, closing
	// backticks. Unterminated fences deliberately do not match and are left
	// in the prose untouched.
	fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*[ \t]*\r?\n?(.*?)```")

	// Heading opening a trailing suggestions section.
	suggestionsRe = regexp.MustCompile(`(?im)^[ \t]*(?:suggestions|suggested next steps):`)
)

// Parse splits raw assistant text into prose, code, and suggestions.
// It is total (never fails) and returns unfenced, suggestion-free input
// unchanged apart from whitespace trimming.
func Parse(raw string) Reply {
	working := raw
	var code string

	if m := fenceRe.FindStringSubmatch(working); m != nil {
		code = strings.TrimSpace(m[1])
		working = fenceRe.ReplaceAllString(working, "")
	}

	var suggestions []string
	if loc := suggestionsRe.FindStringIndex(working); loc != nil {
		section := working[loc[0]:]
		working = working[:loc[0]]

		lines := strings.Split(section, "\n")
		for _, line := range lines[1:] {
			trimmed := strings.TrimSpace(line)
			var item string
			switch {
			case strings.HasPrefix(trimmed, "-"):
				item = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
			case strings.HasPrefix(trimmed, "•"):
				item = strings.TrimSpace(strings.TrimPrefix(trimmed, "•"))
			default:
				continue
			}
			if item != "" {
				suggestions = append(suggestions, item)
			}
		}
	}

	return Reply{
		Content:     strings.TrimSpace(working),
		Code:        code,
		Suggestions: suggestions,
	}
}
