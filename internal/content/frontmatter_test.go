package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-vault/internal/apperror"
)

func TestDecode_NoFrontmatter(t *testing.T) {
	raw := "# Just markdown\n\nsome text"

	meta, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, raw, body)
}

func TestDecode_Basic(t *testing.T) {
	raw := "---\ntitle: Binary Search\nlanguage: python\ncategory: algorithms\n---\n\n# Heading\n"

	meta, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"title":    "Binary Search",
		"language": "python",
		"category": "algorithms",
	}, meta)
	assert.Equal(t, "# Heading\n", body)
}

func TestDecode_CRLF(t *testing.T) {
	raw := "---\r\ntitle: \"Windows\"\r\n---\r\n\r\nbody\r\n"

	meta, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Windows", meta["title"])
	assert.Equal(t, "body\r\n", body)
}

func TestDecode_ScalarsAreStringified(t *testing.T) {
	raw := "---\ntitle: 42\ndraft: true\nempty:\n---\nbody"

	meta, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", meta["title"])
	assert.Equal(t, "true", meta["draft"])
	assert.Equal(t, "", meta["empty"])
	assert.Equal(t, "body", body)
}

func TestDecode_EmptyBlock(t *testing.T) {
	meta, body, err := Decode("---\n---\n\nbody")
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "body", body)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "never closed", raw: "---\ntitle: x\n\n# body that goes on forever\n"},
		{name: "only a delimiter", raw: "---"},
		{name: "list value", raw: "---\ntags:\n  - a\n  - b\n---\nbody"},
		{name: "not a mapping", raw: "---\n- a\n- b\n---\nbody"},
		{name: "invalid yaml", raw: "---\ntitle: \"unterminated\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrParse), "error = %v, want ErrParse", err)
		})
	}
}

func TestEncode_Layout(t *testing.T) {
	got := Encode(map[string]string{
		"slug":     "hello",
		"title":    `Say "hi"`,
		"zeta":     "last",
		"category": "go",
		"alpha":    "first extra",
	}, "body\n")

	want := "---\n" +
		"title: \"Say \\\"hi\\\"\"\n" +
		"category: \"go\"\n" +
		"slug: \"hello\"\n" +
		"alpha: \"first extra\"\n" +
		"zeta: \"last\"\n" +
		"---\n\n" +
		"body\n"
	assert.Equal(t, want, got)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		body string
	}{
		{
			name: "plain fields",
			meta: map[string]string{"title": "Binary Search", "language": "python", "category": "algorithms"},
			body: "# Binary Search\n\n```python\nprint(1)\n```\n",
		},
		{
			name: "quotes and backslashes",
			meta: map[string]string{"title": `He said "use \n literally"`, "description": `C:\path\to`},
			body: "body",
		},
		{
			name: "newlines and tabs in values",
			meta: map[string]string{"description": "line one\nline two\tindented"},
			body: "",
		},
		{
			name: "unicode",
			meta: map[string]string{"title": "Größe 日本語 ✓"},
			body: "ünïcödé body",
		},
		{
			name: "values that look like other yaml types",
			meta: map[string]string{"title": "true", "language": "null", "slug": "2024-01-01", "category": "- item"},
			body: "x",
		},
		{
			name: "body starting with a delimiter",
			meta: map[string]string{"title": "hr"},
			body: "---\n\nafter a rule",
		},
		{
			name: "body starting with blank lines",
			meta: map[string]string{"title": "blank"},
			body: "\n\nindented start",
		},
		{
			name: "no metadata",
			meta: map[string]string{},
			body: "only body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body, err := Decode(Encode(tt.meta, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.meta, meta)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no block", in: "  plain body  ", want: "plain body"},
		{name: "pasted block", in: "---\ntitle: x\n---\n\nbody", want: "body"},
		{name: "leading whitespace before block", in: "\n\n---\ntitle: x\n---\nbody", want: "body"},
		{name: "two pasted blocks", in: "---\na: 1\n---\n---\nb: 2\n---\n\nbody", want: "body"},
		{name: "unclosed delimiter is a rule", in: "---\nbody", want: "---\nbody"},
		{name: "block that is not yaml", in: "---\nthis: is: [broken\n---\nbody", want: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFrontmatter(tt.in))
		})
	}
}
