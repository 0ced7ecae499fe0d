package cmd

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestFirstLine(t *testing.T) {
	require.Equal(t, "short summary", firstLine("short summary"))
	require.Equal(t, "first", firstLine("first\nsecond\nthird"))

	long := strings.Repeat("a", 150)
	got := firstLine(long)
	require.Equal(t, strings.Repeat("a", 120)+"...", got)

	// Truncation counts runes, not bytes: a multi-byte summary must never
	// be cut mid-rune.
	wide := strings.Repeat("界", 150)
	got = firstLine(wide)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("界", 120)+"...", got)
}
