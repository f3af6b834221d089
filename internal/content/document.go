package content

import (
	"time"

	"github.com/sakif/snippet-vault/internal/model"
)

// EncodeSnippet renders a snippet as a complete stored document: the
// frontmatter block with every metadata key, then the body.
func EncodeSnippet(s *model.Snippet) string {
	meta := map[string]string{
		KeyTitle:       s.Title,
		KeyLanguage:    s.Language,
		KeyCategory:    s.Category,
		KeyDescription: s.Description,
		KeySlug:        s.Slug,
		KeyCreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.UpdatedAt != nil {
		meta[KeyUpdatedAt] = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return Encode(meta, s.Content)
}
