package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short", "Family", 10, "Family"},
		{"exact", "abcdefghij", 10, "abcdefghij"},
		{"cut", "The weekend football group", 10, "The wee..."},
		{"newlines collapse", "line one\n\tline two", 32, "line one line two"},
		{"control chars dropped", "ti\x00tle", 10, "title"},
		{"multibyte", "ñandú ñandú ñandú", 8, "ñandú..."},
		{"emoji", "🔒🔒🔒🔒🔒🔒", 5, "🔒🔒..."},
		{"tiny limit clamped", "abcdefgh", 1, "a..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.maxLen))
		})
	}
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "-", OrDash("   "))
	assert.Equal(t, "x", OrDash("x"))
}
