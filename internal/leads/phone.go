package leads

import "strings"

// NormalizeContact reduces a phone number to digits. A +82 country prefix is
// rewritten to the domestic leading zero so both spellings match the same lead.
func NormalizeContact(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	international := strings.HasPrefix(value, "+")
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if international && strings.HasPrefix(digits, "82") {
		digits = "0" + strings.TrimPrefix(digits[2:], "0")
	}
	return digits
}
