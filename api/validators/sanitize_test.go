package validators

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "rcpt_1", SanitizeString("  rcpt_1 ", 40))
	require.Equal(t, "abc", SanitizeString("abcdef", 3))
	require.Equal(t, "abcdef", SanitizeString("abcdef", 0))

	receipt := strings.Repeat("₹", 41)
	out := SanitizeString(receipt, 40)
	require.True(t, utf8.ValidString(out))
	require.Equal(t, 40, utf8.RuneCountInString(out))

	short := strings.Repeat("₹", 20)
	require.Equal(t, short, SanitizeString(short, 40))
}
