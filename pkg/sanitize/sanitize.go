// Package sanitize cleans untrusted text (player names, log bodies) before it
// reaches a terminal or the overlay.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMaxDisplayLength = 256
	DefaultMaxTitleLength   = 128
)

// String sanitizes s for terminal display and caps it at maxLen bytes
// (0 means no cap) without splitting a rune.
func String(s string, maxLen int) string {
	return truncate(ForTerminal(s), maxLen)
}

// ForTerminal replaces escape sequences and control characters with visible
// markers so log content cannot drive the terminal.
func ForTerminal(s string) string {
	if s == "" {
		return s
	}

	needsSanitization := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7F || c == 0x1B {
			needsSanitization = true
			break
		}
	}

	if !needsSanitization {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]

		if c == 0x1B {
			i = skipEscape(s, i)
			result.WriteString("[ESC]")
			continue
		}

		switch {
		case c == '\t':
			result.WriteByte(' ')
		case c == '\n':
			result.WriteByte(' ')
		case c == '\r':
			result.WriteString("[CR]")
		case c < 0x20:
			result.WriteString("[CTRL]")
		case c == 0x7F:
			result.WriteString("[DEL]")
		default:
			result.WriteByte(c)
		}
		i++
	}

	return result.String()
}

// Title prepares a notification title: escape sequences and control
// characters are dropped, whitespace runs collapse to one space, and the
// result is trimmed and capped at maxLen bytes (DefaultMaxTitleLength if
// maxLen <= 0). Invalid UTF-8 is replaced.
func Title(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxTitleLength
	}
	s = strings.ToValidUTF8(s, "\ufffd")

	var result strings.Builder
	result.Grow(len(s))

	space := false
	for i := 0; i < len(s); {
		if s[i] == 0x1B {
			i = skipEscape(s, i)
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch {
		case unicode.IsSpace(r):
			space = result.Len() > 0
		case unicode.IsControl(r), r == '\u200b', r == '\u202d', r == '\u202e':
		default:
			if space {
				result.WriteByte(' ')
				space = false
			}
			result.WriteRune(r)
		}
	}

	return truncate(result.String(), maxLen)
}

// skipEscape returns the index just past the escape sequence starting at
// s[i] (which must be ESC). CSI sequences are consumed up to their final
// byte; for anything else only the ESC byte is consumed.
func skipEscape(s string, i int) int {
	i++
	if i >= len(s) || s[i] != '[' {
		return i
	}
	i++
	for i < len(s) && !isCSITerminator(s[i]) {
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '@' || c == '`'
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return cutRunes(s, maxLen)
	}
	return cutRunes(s, maxLen-3) + "..."
}

func cutRunes(s string, n int) string {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
