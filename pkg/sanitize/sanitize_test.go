package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestForTerminal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "clean string",
			input:    "Hello World",
			expected: "Hello World",
		},
		{
			name:     "ANSI escape sequence",
			input:    "\x1b[31mRed Text\x1b[0m",
			expected: "[ESC]Red Text[ESC]",
		},
		{
			name:     "tab character",
			input:    "Hello\tWorld",
			expected: "Hello World",
		},
		{
			name:     "carriage return",
			input:    "Hello\rWorld",
			expected: "Hello[CR]World",
		},
		{
			name:     "control character",
			input:    "Hello\x01World",
			expected: "Hello[CTRL]World",
		},
		{
			name:     "delete character",
			input:    "Hello\x7FWorld",
			expected: "Hello[DEL]World",
		},
		{
			name:     "screen clearing name",
			input:    "\x1b[2J\x1b[H\x1b[31mPWNED\x1b[0m",
			expected: "[ESC][ESC][ESC]PWNED[ESC]",
		},
		{
			name:     "non-CSI escape keeps next byte",
			input:    "a\x1b7b",
			expected: "a[ESC]7b",
		},
		{
			name:     "unicode untouched",
			input:    "ゆき joined",
			expected: "ゆき joined",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ForTerminal(tc.input)
			if result != tc.expected {
				t.Errorf("ForTerminal(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "within limit",
			input:    "Hello World",
			maxLen:   20,
			expected: "Hello World",
		},
		{
			name:     "exceeds limit",
			input:    "This is a very long string that exceeds the limit",
			maxLen:   20,
			expected: "This is a very lo...",
		},
		{
			name:     "no limit",
			input:    "Hello World",
			maxLen:   0,
			expected: "Hello World",
		},
		{
			name:     "sanitize and truncate",
			input:    "\x1b[31mThis is malicious text\x1b[0m",
			maxLen:   20,
			expected: "[ESC]This is mali...",
		},
		{
			name:     "does not split runes",
			input:    "ééééé",
			maxLen:   8,
			expected: "éé...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := String(tc.input, tc.maxLen)
			if result != tc.expected {
				t.Errorf("String(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "plain title",
			input:    "Bob joined.",
			expected: "Bob joined.",
		},
		{
			name:     "escape sequences removed",
			input:    "\x1b[31mBob\x1b[0m joined.",
			expected: "Bob joined.",
		},
		{
			name:     "control characters removed",
			input:    "Bo\x00b\x07 joined.",
			expected: "Bob joined.",
		},
		{
			name:     "whitespace collapsed and trimmed",
			input:    "  Big \t\n Bob   joined.  ",
			expected: "Big Bob joined.",
		},
		{
			name:     "bidi override removed",
			input:    "\u202eBob joined.",
			expected: "Bob joined.",
		},
		{
			name:     "invalid utf-8 replaced",
			input:    "Bob\xff joined.",
			expected: "Bob\ufffd joined.",
		},
		{
			name:     "capped",
			input:    "Alexander joined.",
			maxLen:   10,
			expected: "Alexand...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Title(tc.input, tc.maxLen)
			if result != tc.expected {
				t.Errorf("Title(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
			}
		})
	}
}

func TestTitleDefaultCap(t *testing.T) {
	result := Title(strings.Repeat("ゆ", 100), 0)
	if len(result) > DefaultMaxTitleLength {
		t.Errorf("Title length %d exceeds %d", len(result), DefaultMaxTitleLength)
	}
	if !utf8.ValidString(result) {
		t.Errorf("Title produced invalid UTF-8: %q", result)
	}
}

func BenchmarkForTerminal(b *testing.B) {
	input := "Normal text without any control characters that needs no sanitization"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ForTerminal(input)
	}
}

func BenchmarkTitle_WithEscape(b *testing.B) {
	input := "\x1b[31mMalicious \x1b[2J name\x1b[0m joined."
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Title(input, 0)
	}
}
