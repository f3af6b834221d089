// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a stored code snippet.
//
// A snippet is addressed by (Category, Slug). Both are fixed at creation:
// the slug is derived once from the title and never recomputed, and the
// category names the directory (file backend) or the grouping field
// (database backends) the record lives under.
//
// Description is derived from the body at creation only. Editing Content
// does not refresh it.
type Snippet struct {
	ID          string     `json:"id,omitempty"`
	Category    string     `json:"category"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Language    string     `json:"language"`
	Description string     `json:"description"`
	Content     string     `json:"content,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Path returns the detail view key for this snippet, e.g. "/snippets/go/binary-search".
func (s *Snippet) Path() string {
	return "/snippets/" + s.Category + "/" + s.Slug
}

// Category is a snippet grouping with the number of snippets it holds.
// Categories with no snippets are never reported.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
