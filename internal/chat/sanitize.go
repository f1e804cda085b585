package chat

import (
	"regexp"
	"strings"
)

// MaxMessageLength caps a chat message before escaping.
const MaxMessageLength = 2000

// Chat bodies are rendered as HTML downstream; every character that could
// open a tag, attribute or entity is escaped to its safe text form.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

var newlineRuns = regexp.MustCompile(`(\r?\n){4,}`)

// Sanitize validates and cleans a raw chat message. It reports ok=false for
// input that should be dropped silently (empty after trimming); chat noise
// must not surface as user-facing errors.
func Sanitize(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", false
	}

	if runes := []rune(cleaned); len(runes) > MaxMessageLength {
		cleaned = string(runes[:MaxMessageLength])
	}

	cleaned = htmlEscaper.Replace(cleaned)

	// Walls of blank lines compress to at most three newlines.
	cleaned = newlineRuns.ReplaceAllString(cleaned, "\n\n\n")

	return cleaned, true
}
