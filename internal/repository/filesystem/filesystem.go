// Package filesystem implements the Content Store as a directory tree:
//
//	<root>/
//	  algorithms/
//	    binary-search.md
//	  go/
//	    channels.md
//
// Each directory is a category and each "<slug>.md" file is one snippet,
// encoded as a frontmatter block (title, language, category, description,
// slug, createdAt, updatedAt) followed by a blank line and the Markdown body.
// Bodies are stored as Markdown and rendered on read by the caller.
//
// WRITES:
// Every write builds the whole document in a hidden temp file next to the
// target and then links or renames it into place, so a crash never leaves a
// half-written snippet. Create uses os.Link, which fails when the target
// exists; that makes the duplicate check and the insert one step. On
// filesystems without hard links Create falls back to an O_EXCL open of the
// target and writes it in place, which keeps the duplicate check but not
// the all-or-nothing write.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/content"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

const fileExt = ".md"

// DefaultLanguage is reported for files that carry no language key.
const DefaultLanguage = "text"

var _ repository.SnippetRepository = (*Store)(nil)

// Store is a file-backed SnippetRepository rooted at a content directory.
type Store struct {
	root   string
	logger *slog.Logger
	link   func(oldname, newname string) error
}

// New opens (and creates, if needed) the content directory at root.
func New(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("filesystem: content root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem: creating content root %s: %w", root, err)
	}
	return &Store{root: root, logger: logger, link: os.Link}, nil
}

// Close is a no-op; the store holds no open handles.
func (s *Store) Close() error { return nil }

// List reads every snippet file under the root (or under one category).
// Files that fail to parse are logged and skipped so one broken file does
// not take the listing down.
func (s *Store) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	var categories []string
	if opts.Category != "" {
		if err := content.CheckKey("category", opts.Category); err != nil {
			return nil, err
		}
		categories = []string{opts.Category}
	} else {
		dirs, err := s.categoryDirs()
		if err != nil {
			return nil, err
		}
		categories = dirs
	}

	snippets := []model.Snippet{}
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slugs, err := s.slugsIn(category)
		if err != nil {
			return nil, err
		}
		for _, slug := range slugs {
			snippet, err := s.read(category, slug)
			if err != nil {
				if errors.Is(err, apperror.ErrParse) {
					s.logger.Warn("skipping malformed snippet file",
						slog.String("path", s.path(category, slug)),
						slog.String("error", err.Error()),
					)
					continue
				}
				if errors.Is(err, apperror.ErrNotFound) {
					// Deleted between ReadDir and ReadFile.
					continue
				}
				return nil, err
			}
			if !opts.WithContent {
				snippet.Content = ""
			}
			snippets = append(snippets, *snippet)
		}
	}

	sortByTitle(snippets)
	return snippets, nil
}

// Categories counts the readable snippets per category directory.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	snippets, err := s.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, sn := range snippets {
		counts[sn.Category]++
	}

	categories := make([]model.Category, 0, len(counts))
	for name, count := range counts {
		categories = append(categories, model.Category{Name: name, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *Store) Get(_ context.Context, category, slug string) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}
	return s.read(category, slug)
}

// Create writes a new snippet file. The category directory is created on
// first use.
func (s *Store) Create(_ context.Context, snippet *model.Snippet) error {
	if err := checkKeys(snippet.Category, snippet.Slug); err != nil {
		return err
	}

	if snippet.CreatedAt.IsZero() {
		snippet.CreatedAt = time.Now().UTC()
	}

	dir := filepath.Join(s.root, snippet.Category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Storage("filesystem: creating category directory", err)
	}

	doc := content.EncodeSnippet(snippet)
	tmp, err := s.writeTemp(dir, doc)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	target := s.path(snippet.Category, snippet.Slug)
	err = s.link(tmp, target)
	if linkUnsupported(err) {
		s.logger.Debug("hard links unavailable, writing in place", slog.String("path", target))
		err = writeExclusive(target, doc)
	}
	if err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return apperror.Conflict("snippet", snippet.Category+"/"+snippet.Slug)
		}
		return apperror.Storage("filesystem: writing snippet file", err)
	}
	return nil
}

// linkUnsupported reports link failures that mean "no hard links here"
// (FAT, some network and FUSE mounts) rather than a real write error.
func linkUnsupported(err error) bool {
	return err != nil && !errors.Is(err, iofs.ErrExist) &&
		(errors.Is(err, errors.ErrUnsupported) || errors.Is(err, iofs.ErrPermission))
}

// writeExclusive creates path, failing with ErrExist if it is already there.
// A failed write removes the partial file.
func writeExclusive(path, doc string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(doc); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// UpdateContent rewrites the file with a new body. Metadata stays as stored.
func (s *Store) UpdateContent(_ context.Context, category, slug, body string, at time.Time) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	snippet, err := s.read(category, slug)
	if err != nil {
		return nil, err
	}
	snippet.Content = body
	updated := at.UTC()
	snippet.UpdatedAt = &updated

	dir := filepath.Join(s.root, category)
	tmp, err := s.writeTemp(dir, content.EncodeSnippet(snippet))
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, s.path(category, slug)); err != nil {
		os.Remove(tmp)
		return nil, apperror.Storage("filesystem: replacing snippet file", err)
	}
	return snippet, nil
}

// Delete removes the snippet file, and the category directory with it once
// it holds nothing else.
func (s *Store) Delete(_ context.Context, category, slug string) error {
	if err := checkKeys(category, slug); err != nil {
		return err
	}

	if err := os.Remove(s.path(category, slug)); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return apperror.NotFound("snippet", category+"/"+slug)
		}
		return apperror.Storage("filesystem: deleting snippet file", err)
	}

	// Fails harmlessly when other files remain.
	_ = os.Remove(filepath.Join(s.root, category))
	return nil
}

func (s *Store) path(category, slug string) string {
	return filepath.Join(s.root, category, slug+fileExt)
}

func (s *Store) read(category, slug string) (*model.Snippet, error) {
	path := s.path(category, slug)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, apperror.NotFound("snippet", category+"/"+slug)
		}
		return nil, apperror.Storage("filesystem: reading snippet file", err)
	}

	meta, body, err := content.Decode(string(raw))
	if err != nil {
		return nil, fmt.Errorf("filesystem: %s: %w", path, err)
	}

	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime().UTC()
	}
	return fromDocument(category, slug, meta, body, modTime), nil
}

func (s *Store) writeTemp(dir, doc string) (string, error) {
	f, err := os.CreateTemp(dir, ".snippet-*.tmp")
	if err != nil {
		return "", apperror.Storage("filesystem: creating temp file", err)
	}
	name := f.Name()

	if _, err := f.WriteString(doc); err != nil {
		f.Close()
		os.Remove(name)
		return "", apperror.Storage("filesystem: writing temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", apperror.Storage("filesystem: closing temp file", err)
	}
	return name, nil
}

// categoryDirs lists the visible sub-directories of the root.
func (s *Store) categoryDirs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperror.Storage("filesystem: reading content root", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if content.CheckKey("category", e.Name()) != nil {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs, nil
}

// slugsIn lists the snippet slugs of one category. A missing directory is an
// empty category.
func (s *Store) slugsIn(category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, category))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperror.Storage("filesystem: reading category directory", err)
	}

	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		slug := strings.TrimSuffix(name, fileExt)
		if content.CheckKey("slug", slug) != nil {
			continue
		}
		slugs = append(slugs, slug)
	}
	return slugs, nil
}

func checkKeys(category, slug string) error {
	if err := content.CheckKey("category", category); err != nil {
		return err
	}
	return content.CheckKey("slug", slug)
}

// fromDocument builds a Snippet from a decoded file. The directory and file
// name are authoritative for category and slug; hand-written files missing
// optional keys get sensible fallbacks.
func fromDocument(category, slug string, meta map[string]string, body string, modTime time.Time) *model.Snippet {
	s := &model.Snippet{
		Category:    category,
		Slug:        slug,
		Title:       meta[content.KeyTitle],
		Language:    meta[content.KeyLanguage],
		Description: meta[content.KeyDescription],
		Content:     body,
		CreatedAt:   modTime,
	}

	if s.Title == "" {
		s.Title = content.TitleFromSlug(slug)
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if _, ok := meta[content.KeyDescription]; !ok {
		s.Description = content.Describe(content.StripFrontmatter(body))
	}
	if t, err := time.Parse(time.RFC3339Nano, meta[content.KeyCreatedAt]); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta[content.KeyUpdatedAt]); err == nil {
		s.UpdatedAt = &t
	}
	return s
}

func sortByTitle(snippets []model.Snippet) {
	sort.SliceStable(snippets, func(i, j int) bool {
		a, b := snippets[i], snippets[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Slug < b.Slug
	})
}
