package strings

import (
	"strings"
	"unicode"
)

// DefaultCellMaxLen bounds titles and nicknames in table output.
const DefaultCellMaxLen = 32

// MinTruncateLen is the smallest maxLen Truncate honours, leaving room for
// one character plus "...".
const MinTruncateLen = 4

// Truncate makes s fit one table cell: whitespace runs collapse to single
// spaces, other control characters are dropped, and the result is cut to
// maxLen runes with a trailing "..." when it was longer.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// OrDash returns s, or "-" when s is blank.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
