// Package content implements the snippet content pipeline that sits in front
// of every storage backend: the frontmatter codec, the slug and description
// derivers, and the key rule that keeps categories and slugs safe to use as
// path segments.
//
// Everything here is pure. No function performs I/O or keeps state, so the
// same helpers serve the file backend (which stores encoded documents) and
// the database backends (which store fields).
package content

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/sakif/snippet-vault/internal/apperror"
)

// Delimiter opens and closes a frontmatter block. It must sit alone on its line.
const Delimiter = "---"

// Metadata keys written by the file backend, in the order Encode emits them.
const (
	KeyTitle       = "title"
	KeyLanguage    = "language"
	KeyCategory    = "category"
	KeyDescription = "description"
	KeySlug        = "slug"
	KeyCreatedAt   = "createdAt"
	KeyUpdatedAt   = "updatedAt"
)

var canonicalOrder = []string{KeyTitle, KeyLanguage, KeyCategory, KeyDescription, KeySlug}

// Decode splits a raw document into its frontmatter metadata and body.
//
// A document without a leading delimiter line has no metadata: the whole
// input is the body. A document that opens a block but never closes it
// fails with ErrParse rather than treating the rest of the file as
// metadata. Values must be scalars; lists and maps fail with ErrParse.
func Decode(raw string) (map[string]string, string, error) {
	block, body, found, err := splitBlock(raw)
	if err != nil {
		return nil, "", err
	}
	meta := map[string]string{}
	if !found {
		return meta, raw, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", apperror.ParseFailed("content: invalid frontmatter", err)
	}
	// An empty block decodes to a zero node.
	if doc.Kind == 0 {
		return meta, body, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, "", apperror.ParseFailed("content: frontmatter must be a key: value mapping", nil)
	}

	mapping := doc.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, "", apperror.ParseFailed("content: frontmatter keys must be scalars", nil)
		}
		if value.Kind != yaml.ScalarNode {
			return nil, "", apperror.ParseFailed(
				fmt.Sprintf("content: frontmatter value for %q must be a scalar", key.Value), nil)
		}
		if value.Tag == "!!null" {
			meta[key.Value] = ""
			continue
		}
		meta[key.Value] = value.Value
	}

	return meta, body, nil
}

// Encode is the inverse of Decode. Known keys come first in a fixed order,
// the rest sorted, and every value is written as a YAML double-quoted string
// so quotes, backslashes and newlines survive the trip.
func Encode(meta map[string]string, body string) string {
	var b strings.Builder
	b.WriteString(Delimiter)
	b.WriteByte('\n')

	for _, key := range orderedKeys(meta) {
		b.WriteString(quoteKey(key))
		b.WriteString(": ")
		b.WriteString(quote(meta[key]))
		b.WriteByte('\n')
	}

	b.WriteString(Delimiter)
	b.WriteString("\n\n")
	b.WriteString(body)
	return b.String()
}

// StripFrontmatter removes any closed frontmatter blocks at the start of a
// submitted body (metadata pasted together with the Markdown) and trims the
// result. A lone leading "---" with no closing line is a thematic break and
// is kept.
func StripFrontmatter(body string) string {
	s := strings.TrimSpace(body)
	for {
		_, rest, found, err := splitBlock(s)
		if err != nil || !found {
			return s
		}
		s = strings.TrimSpace(rest)
	}
}

// splitBlock locates a leading frontmatter block without interpreting it.
// The blank line Encode writes after the closing delimiter is consumed.
func splitBlock(raw string) (block, body string, found bool, err error) {
	first, rest, ok := cutLine(raw)
	if !isDelimiter(first) {
		return "", raw, false, nil
	}
	if !ok {
		return "", "", false, apperror.ParseFailed("content: frontmatter block is never closed", nil)
	}

	var lines []string
	for {
		line, next, more := cutLine(rest)
		if isDelimiter(line) {
			body = next
			if strings.HasPrefix(body, "\r\n") {
				body = body[2:]
			} else if strings.HasPrefix(body, "\n") {
				body = body[1:]
			}
			return strings.Join(lines, "\n"), body, true, nil
		}
		if !more {
			return "", "", false, apperror.ParseFailed("content: frontmatter block is never closed", nil)
		}
		lines = append(lines, line)
		rest = next
	}
}

// cutLine returns the first line of s (without its terminator), the
// remainder after the terminator, and whether a terminator was found.
func cutLine(s string) (line, rest string, ok bool) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSuffix(s[:i], "\r"), s[i+1:], true
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == Delimiter
}

func orderedKeys(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	seen := make(map[string]bool, len(canonicalOrder))
	for _, k := range canonicalOrder {
		if _, ok := meta[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}

	var extra []string
	for k := range meta {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func quoteKey(key string) string {
	if key == "" {
		return `""`
	}
	for _, r := range key {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return quote(key)
		}
	}
	switch strings.ToLower(key) {
	case "true", "false", "null", "yes", "no", "on", "off", "~":
		return quote(key)
	}
	return key
}

// quote writes s as a YAML double-quoted scalar. Every escape produced here
// is part of the YAML 1.2 double-quoted escape set.
func quote(s string) string {
	s = strings.ToValidUTF8(s, "�")

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			switch {
			case r < 0x20 || r == 0x7f:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r >= utf8.RuneSelf && !strconv.IsPrint(r):
				if r > 0xffff {
					fmt.Fprintf(&b, `\U%08x`, r)
				} else {
					fmt.Fprintf(&b, `\u%04x`, r)
				}
			default:
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
