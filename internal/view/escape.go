package view

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces the five HTML-reserved characters with entities in a
// single pass. Output is never re-scanned, so "&lt;" becomes "&amp;lt;".
func Escape(text string) string {
	if text == "" {
		return ""
	}
	return htmlEscaper.Replace(text)
}
