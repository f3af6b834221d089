// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → authorizes, validates, orchestrates
//	Repository (Data layer)  → reads/writes files or database rows
//
// SnippetService takes a repository.SnippetRepository (interface), NOT a
// concrete backend. The same service drives the file tree, SQLite and
// MongoDB stores, and the tests drive it with an in-memory fake.
//
// THE CONSISTENCY GATE:
// Every write passes through the same sequence:
//
//  1. Authorize:  no admin session → ErrUnauthorized, before any storage access
//  2. Normalize:  trim fields, lower-case category, strip pasted frontmatter
//  3. Validate:   required fields, lengths, traversal-safe keys
//  4. Derive:     slug and description (create only)
//  5. Persist:    through the repository
//  6. Revalidate: invalidate the cached pages the write affected
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/cache"
	"github.com/sakif/snippet-vault/internal/content"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// Validation limits.
const (
	MaxTitleLength    = 200
	MaxLanguageLength = 50
	MaxCategoryLength = 100
	MaxContentLength  = 100000 // ~100KB of Markdown
)

// SnippetService handles business logic for code snippets.
type SnippetService struct {
	repo        repository.SnippetRepository
	invalidator cache.Invalidator
	now         func() time.Time
	logger      *slog.Logger
}

// NewSnippetService creates a new SnippetService. A nil clock means
// time.Now; a nil invalidator means no cache.
func NewSnippetService(
	repo repository.SnippetRepository,
	invalidator cache.Invalidator,
	clock func() time.Time,
	logger *slog.Logger,
) *SnippetService {
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &SnippetService{
		repo:        repo,
		invalidator: invalidator,
		now:         clock,
		logger:      logger,
	}
}

// CreateInput is what an author submits for a new snippet.
type CreateInput struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// normalize applies the gate's cleanup to a submission.
func (in CreateInput) normalize() CreateInput {
	return CreateInput{
		Title:    strings.TrimSpace(in.Title),
		Language: strings.TrimSpace(in.Language),
		Category: content.NormalizeCategory(in.Category),
		Content:  content.StripFrontmatter(in.Content),
	}
}

// Validate checks a normalized submission.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&in.Language, validation.Required, validation.RuneLength(1, MaxLanguageLength)),
		validation.Field(&in.Category, validation.Required, validation.RuneLength(1, MaxCategoryLength), keyRule("category")),
		validation.Field(&in.Content, validation.Required, validation.Length(1, MaxContentLength)),
	)
}

// keyRule rejects values that cannot address storage.
func keyRule(field string) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		return content.CheckKey(field, s)
	})
}

// =========================================================================
// READS
// =========================================================================

// List returns every snippet, without bodies, sorted by title.
func (s *SnippetService) List(ctx context.Context) ([]model.Snippet, error) {
	snippets, err := s.repo.List(ctx, repository.ListOptions{})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// ListByCategory returns the snippets of one category. An unknown category
// yields an empty list, not an error.
func (s *SnippetService) ListByCategory(ctx context.Context, category string) ([]model.Snippet, error) {
	if err := content.CheckKey("category", category); err != nil {
		return nil, err
	}

	snippets, err := s.repo.List(ctx, repository.ListOptions{Category: category})
	if err != nil {
		s.logger.Error("failed to list category",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing category %s: %w", category, err)
	}
	return snippets, nil
}

// Categories returns the non-empty categories with their counts.
func (s *SnippetService) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Get returns one snippet with its body.
// NotFound is an ordinary outcome and is not logged.
func (s *SnippetService) Get(ctx context.Context, category, slug string) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, category, slug)
}

// Raw returns the stored document of a snippet: frontmatter and body, as an
// editor would open it.
func (s *SnippetService) Raw(ctx context.Context, category, slug string) (string, error) {
	snippet, err := s.Get(ctx, category, slug)
	if err != nil {
		return "", err
	}
	return content.EncodeSnippet(snippet), nil
}

// Search finds snippets whose title, description, language, category or body
// contains the query, ignoring case. A blank query matches nothing. Results
// carry no body.
func (s *SnippetService) Search(ctx context.Context, query string) ([]model.Snippet, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Snippet{}, nil
	}

	all, err := s.repo.List(ctx, repository.ListOptions{WithContent: true})
	if err != nil {
		s.logger.Error("failed to search snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("searching snippets: %w", err)
	}

	matches := []model.Snippet{}
	for _, sn := range all {
		if matchesQuery(&sn, q) {
			sn.Content = ""
			matches = append(matches, sn)
		}
	}
	return matches, nil
}

func matchesQuery(sn *model.Snippet, q string) bool {
	for _, field := range []string{sn.Title, sn.Description, sn.Language, sn.Category, sn.Content} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// =========================================================================
// WRITES
// =========================================================================

// Create validates a submission, derives its slug and description, and
// stores it.
//
// The existence check gives a clean Conflict in the common case; the
// backend's own uniqueness check settles races between two creates.
func (s *SnippetService) Create(ctx context.Context, in CreateInput) (*model.Snippet, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	in = in.normalize()
	if err := gateError(in.Validate()); err != nil {
		return nil, err
	}

	slug := content.Slugify(in.Title)
	if slug == "" {
		return nil, apperror.ValidationFailed("title", "title must contain at least one letter or digit")
	}

	if _, err := s.repo.Get(ctx, in.Category, slug); err == nil {
		return nil, apperror.Conflict("snippet", in.Category+"/"+slug)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking for existing snippet: %w", err)
	}

	snippet := &model.Snippet{
		Category:    in.Category,
		Slug:        slug,
		Title:       in.Title,
		Language:    in.Language,
		Description: content.Describe(in.Content),
		Content:     in.Content,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create snippet",
				slog.String("category", in.Category),
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("category", snippet.Category),
		slog.String("slug", snippet.Slug),
	)

	s.invalidate(ctx, cache.HomePath, cache.CategoryPath(snippet.Category))
	return snippet, nil
}

// Update replaces the body of an existing snippet. Title, slug, category
// and description stay as they were.
func (s *SnippetService) Update(ctx context.Context, category, slug, newContent string) (*model.Snippet, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	body := content.StripFrontmatter(newContent)
	err := gateError(validation.Errors{
		"content": validation.Validate(body, validation.Required, validation.Length(1, MaxContentLength)),
	}.Filter())
	if err != nil {
		return nil, err
	}

	snippet, err := s.repo.UpdateContent(ctx, category, slug, body, s.now().UTC())
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update snippet",
				slog.String("category", category),
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated",
		slog.String("category", category),
		slog.String("slug", slug),
	)

	s.invalidate(ctx, cache.HomePath, cache.CategoryPath(category), cache.DetailPath(category, slug))
	return snippet, nil
}

// Delete removes a snippet.
// Returns apperror.ErrNotFound if the snippet doesn't exist, and leaves the
// store untouched.
func (s *SnippetService) Delete(ctx context.Context, category, slug string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := checkKeys(category, slug); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, category, slug); err != nil {
		return err
	}

	s.logger.Info("snippet deleted",
		slog.String("category", category),
		slog.String("slug", slug),
	)

	s.invalidate(ctx, cache.HomePath, cache.CategoryPath(category), cache.DetailPath(category, slug))
	return nil
}

// invalidate signals every affected path. The write has already happened,
// so a failure here is logged and otherwise ignored; stale entries age out
// with the cache TTL.
func (s *SnippetService) invalidate(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := s.invalidator.Invalidate(ctx, p); err != nil {
			s.logger.Warn("cache invalidation failed",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
}

func requireAdmin(ctx context.Context) error {
	if !auth.IsAdmin(ctx) {
		return apperror.Unauthorized("admin login required")
	}
	return nil
}

func checkKeys(category, slug string) error {
	if err := content.CheckKey("category", category); err != nil {
		return err
	}
	return content.CheckKey("slug", slug)
}

// gateError turns ozzo-validation output into an apperror. The first failing
// field (alphabetically) is reported.
func gateError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validating input: %w", err)
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	field := fields[0]
	fieldErr := errs[field]

	// Rules built on content.CheckKey already return an AppError.
	var appErr *apperror.AppError
	if errors.As(fieldErr, &appErr) {
		return appErr
	}
	return apperror.ValidationFailed(field, field+" "+fieldErr.Error())
}
