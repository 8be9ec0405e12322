package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// Posts and bios are plain text; any markup a client smuggles in is
// stripped entirely rather than allowed through a UGC whitelist.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from user supplied text and returns the author's
// plain text. The policy entity-escapes whatever it keeps, so that escaping
// is undone afterwards: stored content is what the author typed, and
// escaping stays a render concern.
func Sanitize(input string) string {
	return html.UnescapeString(sanitizer.Sanitize(input))
}
