package validators

import "strings"

// SanitizeString trims input and caps it at maxLen characters. Multibyte
// characters are never split, so the result stays valid UTF-8.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
