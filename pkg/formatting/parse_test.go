package formatting_test

import (
	"errors"
	"testing"

	"github.com/ledgerline/ledgerline/pkg/formatting"
)

type verdictPayload struct {
	Verdict string `json:"verdict"`
	Summary string `json:"summary"`
}

func TestParseDirectJSON(t *testing.T) {
	got, err := formatting.Parse[verdictPayload](`{"verdict": "Yes", "summary": "All matched."}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Verdict != "Yes" || got.Summary != "All matched." {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestParseFencedJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"json fence",
			"Here is the result:\n```json\n{\"verdict\": \"No\", \"summary\": \"Mismatch.\"}\n```",
		},
		{
			"bare fence",
			"```\n{\"verdict\": \"No\", \"summary\": \"Mismatch.\"}\n```",
		},
		{
			"fence with trailing prose",
			"```json\n{\"verdict\": \"No\", \"summary\": \"Mismatch.\"}\n```\nLet me know if you need more detail.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdictPayload](tt.content)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Verdict != "No" {
				t.Errorf("Verdict = %s, want No", got.Verdict)
			}
		})
	}
}

func TestParseSurroundingWhitespace(t *testing.T) {
	got, err := formatting.Parse[verdictPayload]("\n\n  {\"verdict\": \"Yes\", \"summary\": \"ok\"}  \n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Verdict != "Yes" {
		t.Errorf("Verdict = %s, want Yes", got.Verdict)
	}
}

func TestParseFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain prose", "I could not determine a verdict."},
		{"malformed fence", "```json\n{\"verdict\": \n```"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := formatting.Parse[verdictPayload](tt.content); !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("Parse() error = %v, want %v", err, formatting.ErrParseFailed)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"50MB", 50 * 1024 * 1024},
		{"1.5 KB", 1536},
		{"1024", 1024},
		{"2gb", 2 * 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if err != nil {
				t.Fatalf("ParseBytes(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "MB", "ten MB", "5XB"} {
		if _, err := formatting.ParseBytes(bad); err == nil {
			t.Errorf("ParseBytes(%q) expected error", bad)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{512, 0, "512 B"},
		{1536, 1, "1.5 KB"},
		{50 * 1024 * 1024, 0, "50 MB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
		}
	}
}
