package observability

import (
	"strings"
	"unicode"
)

// sanitizeString drops control characters and truncates to limit runes so request data cannot
// forge log lines.
func sanitizeString(value string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n >= limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute cleans a route pattern for logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeID cleans caller supplied identifiers.
func SanitizeID(id string) string {
	return sanitizeString(strings.TrimSpace(id), 64)
}
