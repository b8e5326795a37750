package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_PlainTextUnchanged(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple prose", "The dataset has 42 columns.", "The dataset has 42 columns."},
		{"multiline prose", "First line.\nSecond line.", "First line.\nSecond line."},
		{"surrounding whitespace trimmed", "  padded  \n", "padded"},
		{"empty input", "", ""},
		{"inline backticks are not fences", "use `df.head()` to peek", "use `df.head()` to peek"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			assert.Equal(t, tt.want, got.Content)
			assert.Empty(t, got.Code)
			assert.Nil(t, got.Suggestions)
		})
	}
}

func TestParse_ExtractsCodeAndSuggestions(t *testing.T) {
	raw := "Here is code:\n```python\nprint(1)\n```\nSuggestions:\n- try X\n- try Y"

	got := Parse(raw)

	assert.Equal(t, "Here is code:", got.Content)
	assert.Equal(t, "print(1)", got.Code)
	assert.Equal(t, []string{"try X", "try Y"}, got.Suggestions)
}

func TestParse_Code(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantContent string
		wantCode    string
	}{
		{
			name:        "untagged fence",
			in:          "before\n```\nx = 1\n```\nafter",
			wantContent: "before\n\nafter",
			wantCode:    "x = 1",
		},
		{
			name:        "first of several fences wins, all removed",
			in:          "a\n```python\nfirst()\n```\nb\n```sql\nSELECT 2\n```\nc",
			wantContent: "a\n\nb\n\nc",
			wantCode:    "first()",
		},
		{
			name:        "unterminated fence left in prose",
			in:          "broken\n```python\nprint(1)",
			wantContent: "broken\n```python\nprint(1)",
			wantCode:    "",
		},
		{
			name:        "fence body trimmed",
			in:          "```python\n\n  df.describe()\n\n```",
			wantContent: "",
			wantCode:    "df.describe()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			assert.Equal(t, tt.wantContent, got.Content)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestParse_Suggestions(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantContent string
		wantSugg    []string
	}{
		{
			name:        "alternate heading",
			in:          "Done.\nSuggested Next Steps:\n- inspect nulls",
			wantContent: "Done.",
			wantSugg:    []string{"inspect nulls"},
		},
		{
			name:        "case insensitive heading",
			in:          "Done.\nSUGGESTIONS:\n- one",
			wantContent: "Done.",
			wantSugg:    []string{"one"},
		},
		{
			name:        "bullet character marker",
			in:          "Done.\nSuggestions:\n• plot it\n• export csv",
			wantContent: "Done.",
			wantSugg:    []string{"plot it", "export csv"},
		},
		{
			name:        "non-bullet lines skipped",
			in:          "Done.\nSuggestions:\nsome stray text\n- keep me",
			wantContent: "Done.",
			wantSugg:    []string{"keep me"},
		},
		{
			name:        "heading with no bullets yields no suggestions",
			in:          "Done.\nSuggestions:\nnothing bulleted here",
			wantContent: "Done.",
			wantSugg:    nil,
		},
		{
			name:        "heading must start its line",
			in:          "My suggestions: read the docs",
			wantContent: "My suggestions: read the docs",
			wantSugg:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			assert.Equal(t, tt.wantContent, got.Content)
			assert.Equal(t, tt.wantSugg, got.Suggestions)
		})
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"``````",
		"```",
		"Suggestions:",
		"Suggestions:\n",
		"```\nSuggestions:\n- inside fence\n```",
		"\x00\xff weird bytes ```py\nok\n```",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) })
	}
}
