// Package repository defines the Content Store contract every storage
// backend implements. Backends live in sub-packages (filesystem, sqlite, mongodb) and
// are chosen at startup; the service layer only ever sees this interface.
package repository

import (
	"context"
	"time"

	"github.com/sakif/snippet-vault/internal/model"
)

// ListOptions narrows a listing.
//
// Category restricts results to one category; an unknown category yields an
// empty slice, not an error. WithContent includes the Markdown body, which
// listings normally leave out.
type ListOptions struct {
	Category    string
	WithContent bool
}

// SnippetRepository is the Content Store. Snippets are addressed by
// (category, slug); implementations validate both with content.CheckKey
// before touching storage.
//
// Ordering: List sorts by title ascending, byte-wise and case-sensitive.
// Categories sorts by name and omits empty categories.
type SnippetRepository interface {
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, category, slug string) (*model.Snippet, error)
	// Create stores a new snippet. It fails with apperror.ErrConflict when
	// (category, slug) is taken.
	Create(ctx context.Context, snippet *model.Snippet) error
	// UpdateContent replaces the body and sets UpdatedAt. Nothing else changes.
	UpdateContent(ctx context.Context, category, slug, content string, at time.Time) (*model.Snippet, error)
	Delete(ctx context.Context, category, slug string) error
	Close() error
}
