// Package render turns snippet Markdown into the HTML the API hands out.
//
// The output is meant to be injected into a page as trusted HTML, which makes
// this package the sanitization boundary for everything an admin submits:
//
//  1. goldmark runs without html.WithUnsafe, so raw HTML blocks and inline
//     tags in the Markdown are dropped and dangerous link schemes are
//     neutralised at render time.
//  2. The rendered document is then passed through a bluemonday UGC policy
//     that only adds the class and data attributes the highlighter emits.
//
// Fenced code blocks with a language chroma knows are highlighted with CSS
// classes (no inline styles) and wrapped in <div class="highlight"
// data-lang="...">. Unknown languages fall back to a plain
// <pre><code class="language-..."> block.
package render

import (
	"bytes"
	"fmt"
	"regexp"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// DefaultStyle is the chroma style name used when none is configured. With
// class-based output it only picks the token classes, the colours live in CSS.
const DefaultStyle = "github"

var (
	classValue = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	langValue  = regexp.MustCompile(`^[a-zA-Z0-9+#._-]+$`)
)

// Renderer converts Markdown to sanitized, highlighted HTML. It holds no
// per-call state and is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a Renderer. An empty style selects DefaultStyle.
func New(style string) *Renderer {
	if style == "" {
		style = DefaultStyle
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				highlighting.WithWrapperRenderer(wrapCodeBlock),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	return &Renderer{md: md, policy: newPolicy()}
}

// Render returns the HTML for a Markdown body.
func (r *Renderer) Render(body string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render: converting markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// wrapCodeBlock writes the element around each fenced block. Highlighted
// blocks carry the lexer tag; unhighlighted ones get the plain
// <pre><code class="language-x"> shape.
func wrapCodeBlock(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	lang, ok := c.Language()

	if c.Highlighted() {
		if !entering {
			_, _ = w.WriteString("</div>\n")
			return
		}
		_, _ = w.WriteString(`<div class="highlight"`)
		if ok {
			_, _ = w.WriteString(` data-lang="`)
			_, _ = w.Write(util.EscapeHTML(lang))
			_ = w.WriteByte('"')
		}
		_ = w.WriteByte('>')
		return
	}

	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return
	}
	_, _ = w.WriteString("<pre><code")
	if ok {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classValue).OnElements("div", "pre", "code", "span")
	p.AllowAttrs("data-lang").Matching(langValue).OnElements("div")
	// GFM task lists.
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}
