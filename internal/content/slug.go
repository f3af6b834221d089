package content

import (
	"strings"
	"unicode"
)

// MaxSlugLength bounds derived slugs. Slugs are file names in the file
// backend and URL segments everywhere, so they stay short.
const MaxSlugLength = 50

// Slugify converts a free-text title into a URL-safe identifier:
//
//	"Binary Search!"        → "binary-search"
//	"  Go -- Channels  "    → "go-channels"
//	"C++ & Rust"            → "c-rust"
//
// The result only contains [a-z0-9-], never starts or ends with a dash and
// never holds two dashes in a row. Applying Slugify to its own output
// returns it unchanged. Uniqueness is not guaranteed here: the service
// checks for collisions when the snippet is created.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		default:
			// Dropped without acting as a separator: "don't" → "dont".
		}
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// TitleFromSlug turns a slug back into a readable title, "next-js" → "Next Js".
// Used when a hand-written file carries no title.
func TitleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
