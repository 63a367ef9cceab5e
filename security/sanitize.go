// Package security holds the input and credential helpers shared by the
// completion client, the credential store and the native-messaging host.
package security

import (
	"fmt"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// SanitizeInput escapes the characters that could be interpreted as markup
// once the text is injected into a page.
func SanitizeInput(input string) string {
	return htmlEscaper.Replace(input)
}

// SensitiveFields are masked by default before anything reaches the debug log.
var SensitiveFields = []string{"apiKey", "password", "token", "sessionId"}

// MaskValue hides a secret. Short values are fully masked, longer ones keep
// their first and last two characters.
func MaskValue(value string) string {
	r := []rune(value)
	if len(r) <= 6 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}

// MaskSensitive returns a copy of data with the named fields masked.
// Empty or missing fields are left untouched.
func MaskSensitive(data map[string]any, fields []string) map[string]any {
	masked := make(map[string]any, len(data))
	for k, v := range data {
		masked[k] = v
	}
	for _, field := range fields {
		v, ok := masked[field]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		masked[field] = MaskValue(s)
	}
	return masked
}
