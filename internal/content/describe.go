package content

import (
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength is the longest description kept before "..." is appended.
const MaxDescriptionLength = 150

// Ellipsis marks a truncated description.
const Ellipsis = "..."

// Describe derives the short plain-text excerpt shown in listings: the body
// up to its first sentence terminator, with newlines and tabs folded into
// single spaces. Long excerpts are cut at MaxDescriptionLength runes.
//
// It runs once, when the snippet is created. Later content edits keep the
// original description.
func Describe(body string) string {
	if i := strings.IndexAny(body, ".!?"); i >= 0 {
		body = body[:i]
	}

	body = strings.Join(strings.FieldsFunc(body, isBreak), " ")
	body = strings.TrimSpace(body)

	if utf8.RuneCountInString(body) <= MaxDescriptionLength {
		return body
	}

	runes := []rune(body)
	return strings.TrimSpace(string(runes[:MaxDescriptionLength])) + Ellipsis
}

func isBreak(r rune) bool {
	return r == '\n' || r == '\r' || r == '\t'
}
