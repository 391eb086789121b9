// Package fsutil provides filesystem naming helpers shared by the
// harvest and pagination pipelines.
package fsutil

import (
	"regexp"
	"strings"
)

var (
	invalidPathChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	dashRuns         = regexp.MustCompile(`[-\s]+`)
)

// Sanitize makes a string safe to use as a single path segment. Characters
// that are invalid in directory names are replaced with dashes, runs of
// dashes and whitespace collapse to a single dash, and leading/trailing
// dashes are trimmed. An empty input yields an empty string; callers decide
// the placeholder.
func Sanitize(segment string) string {
	if segment == "" {
		return ""
	}
	s := invalidPathChars.ReplaceAllString(segment, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeOr sanitizes segment and falls back to placeholder when the
// result is empty.
func SanitizeOr(segment, placeholder string) string {
	if s := Sanitize(segment); s != "" {
		return s
	}
	return placeholder
}
