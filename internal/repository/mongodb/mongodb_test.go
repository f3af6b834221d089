package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// These tests need a running MongoDB, e.g.
//
//	docker run --rm -p 27017:27017 mongo:7
//	MONGODB_URI=mongodb://localhost:27017 go test ./internal/repository/mongodb/
//
// Each test uses its own throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx := context.Background()
	dbName := "snippet_vault_test_" + xid.New().String()
	s, err := New(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func createTestSnippet(t *testing.T, s *Store, category, slug, title string) *model.Snippet {
	t.Helper()
	sn := &model.Snippet{
		Category: category,
		Slug:     slug,
		Title:    title,
		Language: "go",
		Content:  "# " + title,
	}
	require.NoError(t, s.Create(context.Background(), sn))
	return sn
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	created := createTestSnippet(t, s, "go", "hello", "Hello")
	assert.NotEmpty(t, created.ID)

	got, err := s.Get(context.Background(), "go", "hello")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "# Hello", got.Content)
	assert.Nil(t, got.UpdatedAt)
}

func TestCreate_Conflict(t *testing.T) {
	s := newTestStore(t)
	createTestSnippet(t, s, "go", "hello", "Hello")

	err := s.Create(context.Background(), &model.Snippet{Category: "go", Slug: "hello", Title: "Again"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "error = %v", err)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "go", "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	createTestSnippet(t, s, "go", "zebra", "Zebra")
	createTestSnippet(t, s, "rust", "apple", "apple")
	createTestSnippet(t, s, "go", "binary", "Binary")

	all, err := s.List(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Binary", all[0].Title)
	assert.Equal(t, "apple", all[2].Title)
	assert.Empty(t, all[0].Content)

	goOnly, err := s.List(context.Background(), repository.ListOptions{Category: "go", WithContent: true})
	require.NoError(t, err)
	require.Len(t, goOnly, 2)
	assert.Equal(t, "# Binary", goOnly[0].Content)
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	createTestSnippet(t, s, "go", "a", "A")
	createTestSnippet(t, s, "go", "b", "B")
	createTestSnippet(t, s, "algorithms", "c", "C")

	got, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{Name: "algorithms", Count: 1}, {Name: "go", Count: 2}}, got)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	createTestSnippet(t, s, "go", "hello", "Hello")
	ctx := context.Background()

	updated, err := s.UpdateContent(ctx, "go", "hello", "v2", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = s.UpdateContent(ctx, "go", "missing", "v2", time.Now())
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, s.Delete(ctx, "go", "hello"))
	err = s.Delete(ctx, "go", "hello")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// Key validation happens before any round trip, so it runs without a server.
func TestKeysAreValidatedBeforeStorage(t *testing.T) {
	var s Store
	ctx := context.Background()

	_, err := s.Get(ctx, "..", "x")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	err = s.Delete(ctx, "go", "a/b")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	err = s.Create(ctx, &model.Snippet{Category: "", Slug: "x"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
