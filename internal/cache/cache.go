// Package cache holds rendered API responses and the revalidation signal
// the service sends after every write.
//
// Entries are grouped by PATH KEY, the public page a response belongs to
// ("/", "/category/go", "/snippets/go/channels"). One path can hold several
// variants (the home path holds both the snippet list and the category
// list), and Invalidate drops all of them at once.
package cache

import "context"

// HomePath is the path key of the listing and category index.
const HomePath = "/"

// CategoryPath returns the path key of a category listing.
func CategoryPath(category string) string {
	return "/category/" + category
}

// DetailPath returns the path key of a single snippet page.
func DetailPath(category, slug string) string {
	return "/snippets/" + category + "/" + slug
}

// Invalidator receives the revalidation signal for a path key.
type Invalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// Views is an Invalidator that can also store responses.
type Views interface {
	Invalidator
	Get(ctx context.Context, path, variant string) ([]byte, bool, error)
	Set(ctx context.Context, path, variant string, body []byte) error
	Close() error
}

// Nop caches nothing. Every Get misses.
type Nop struct{}

var _ Views = Nop{}

func (Nop) Invalidate(context.Context, string) error { return nil }

func (Nop) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, string, []byte) error { return nil }

func (Nop) Close() error { return nil }
