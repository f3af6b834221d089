package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-vault/internal/cache"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/service"
)

// Cache variants stored under a path key.
const (
	variantSnippets   = "snippets"
	variantCategories = "categories"
	variantDetail     = "detail"
)

// CacheHeader reports whether a read was served from the view cache.
const CacheHeader = "X-Cache"

// Renderer turns a Markdown body into HTML.
type Renderer interface {
	Render(body string) (string, error)
}

// SnippetHandler serves the snippet API.
//
// Public reads go through the view cache, keyed by the page they back. The
// service invalidates those keys after every write, so a cached body is
// never older than the last successful mutation.
type SnippetHandler struct {
	svc      *service.SnippetService
	renderer Renderer
	views    cache.Views
	logger   *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler. A nil views means no cache.
func NewSnippetHandler(svc *service.SnippetService, renderer Renderer, views cache.Views, logger *slog.Logger) *SnippetHandler {
	if views == nil {
		views = cache.Nop{}
	}
	return &SnippetHandler{svc: svc, renderer: renderer, views: views, logger: logger}
}

// SnippetDetail is a snippet together with its rendered body.
type SnippetDetail struct {
	model.Snippet
	HTML string `json:"html"`
}

// CategoryListing is the response of a category page.
type CategoryListing struct {
	Category string          `json:"category"`
	Snippets []model.Snippet `json:"snippets"`
}

type updateRequest struct {
	Content string `json:"content"`
}

// HandleList returns every snippet without bodies, or one category's when
// ?category= is set.
//
// HTTP: GET /api/snippets[?category=go]
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		h.serveCategory(w, r, category)
		return
	}

	h.serveCached(w, r, cache.HomePath, variantSnippets, func(ctx context.Context) (any, bool, error) {
		snippets, err := h.svc.List(ctx)
		return snippets, true, err
	})
}

// HandleCategories returns the non-empty categories with counts.
//
// HTTP: GET /api/categories
func (h *SnippetHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, cache.HomePath, variantCategories, func(ctx context.Context) (any, bool, error) {
		categories, err := h.svc.Categories(ctx)
		return categories, true, err
	})
}

// HandleCategory returns the snippets of one category.
//
// HTTP: GET /api/categories/{category}
func (h *SnippetHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	h.serveCategory(w, r, chi.URLParam(r, "category"))
}

// serveCategory caches only categories that exist. Any name can be asked
// for, so caching empty listings would let anonymous callers fill the cache.
func (h *SnippetHandler) serveCategory(w http.ResponseWriter, r *http.Request, category string) {
	h.serveCached(w, r, cache.CategoryPath(category), variantSnippets, func(ctx context.Context) (any, bool, error) {
		snippets, err := h.svc.ListByCategory(ctx, category)
		if err != nil {
			return nil, false, err
		}
		return CategoryListing{Category: category, Snippets: snippets}, len(snippets) > 0, nil
	})
}

// HandleGet returns one snippet with its body rendered to HTML.
//
// HTTP: GET /api/snippets/{category}/{slug}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	category, slug := chi.URLParam(r, "category"), chi.URLParam(r, "slug")

	h.serveCached(w, r, cache.DetailPath(category, slug), variantDetail, func(ctx context.Context) (any, bool, error) {
		snippet, err := h.svc.Get(ctx, category, slug)
		if err != nil {
			return nil, false, err
		}
		html, err := h.renderer.Render(snippet.Content)
		if err != nil {
			return nil, false, err
		}
		return SnippetDetail{Snippet: *snippet, HTML: html}, true, nil
	})
}

// HandleRaw returns the stored document, frontmatter included.
//
// HTTP: GET /api/snippets/{category}/{slug}/raw
func (h *SnippetHandler) HandleRaw(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Raw(r.Context(), chi.URLParam(r, "category"), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// HandleSearch matches snippets against ?q=.
//
// HTTP: GET /api/search?q=channel
func (h *SnippetHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleCreate stores a new snippet.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"title":"Binary Search","language":"python","category":"algorithms","content":"..."}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api"+snippet.Path())
	writeJSON(w, http.StatusCreated, snippet) // 201 Created
}

// HandleUpdate replaces the body of a snippet.
//
// HTTP: PUT /api/snippets/{category}/{slug}
// REQUEST BODY: {"content":"..."}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.svc.Update(r.Context(), chi.URLParam(r, "category"), chi.URLParam(r, "slug"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{category}/{slug}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "category"), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent) // 204 No Content
}

// serveCached answers from the view cache when it can, and otherwise calls
// load, encodes the result and stores it when load says so. Errors are never
// cached. A cache outage degrades to uncached reads.
func (h *SnippetHandler) serveCached(w http.ResponseWriter, r *http.Request, path, variant string, load func(context.Context) (any, bool, error)) {
	ctx := r.Context()

	body, ok, err := h.views.Get(ctx, path, variant)
	if err != nil {
		h.logger.Warn("cache read failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	if ok {
		writeBody(w, "HIT", body)
		return
	}

	data, store, err := load(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err = json.Marshal(data)
	if err != nil {
		writeError(w, err)
		return
	}
	body = append(body, '\n')

	if store {
		if err := h.views.Set(ctx, path, variant, body); err != nil {
			h.logger.Warn("cache write failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	writeBody(w, "MISS", body)
}

func writeBody(w http.ResponseWriter, cacheStatus string, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(CacheHeader, cacheStatus)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
