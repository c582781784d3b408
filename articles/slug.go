package articles

import (
	"regexp"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugRepeats = regexp.MustCompile(`-{2,}`)
)

// SanitizeSlug normalizes a client-supplied slug into the canonical storage
// key: lowercase, with every run of characters outside [a-z0-9-] replaced by
// a single hyphen, repeated hyphens collapsed, and leading and trailing
// hyphens removed. The result is empty when the input holds no usable
// characters at all. Sanitizing an already sanitized slug is a no-op.
func SanitizeSlug(slug string) string {
	slug = strings.ToLower(slug)
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = slugRepeats.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
