package stache

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// EscapeHTML replaces the characters & < > " ' / ` = with HTML entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
