package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
)

func seedRepo(t *testing.T, r *fakeRepo, snippets ...model.Snippet) {
	t.Helper()
	for i := range snippets {
		if err := r.Create(context.Background(), &snippets[i]); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
}

func TestImport(t *testing.T) {
	src, dst := newFakeRepo(), newFakeRepo()
	seedRepo(t, src,
		model.Snippet{Category: "go", Slug: "a", Title: "A", Content: "body a", Description: "desc a", CreatedAt: fixedNow},
		model.Snippet{Category: "go", Slug: "b", Title: "B", Content: "body b"},
	)
	seedRepo(t, dst, model.Snippet{Category: "go", Slug: "b", Title: "B (already here)", Content: "kept"})

	res, err := NewImporter(src, dst, discardLogger()).Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.Imported != 1 || res.Skipped != 1 {
		t.Errorf("Import() = %+v, want 1 imported, 1 skipped", res)
	}

	a := dst.snippets["go/a"]
	if a == nil {
		t.Fatal("go/a was not imported")
	}
	if a.Content != "body a" || a.Description != "desc a" || !a.CreatedAt.Equal(fixedNow) {
		t.Errorf("imported record lost fields: %+v", a)
	}
	if dst.snippets["go/b"].Content != "kept" {
		t.Error("existing record was overwritten")
	}

	// Running again is a no-op.
	res, err = NewImporter(src, dst, discardLogger()).Import(context.Background())
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if res.Imported != 0 || res.Skipped != 2 {
		t.Errorf("second Import() = %+v, want 0 imported, 2 skipped", res)
	}
}

func TestImport_DestinationFailure(t *testing.T) {
	src, dst := newFakeRepo(), newFakeRepo()
	seedRepo(t, src, model.Snippet{Category: "go", Slug: "a", Title: "A", Content: "x"})
	dst.failWith = apperror.Storage("db down", errors.New("connection refused"))

	_, err := NewImporter(src, dst, discardLogger()).Import(context.Background())
	if !errors.Is(err, apperror.ErrStorage) {
		t.Errorf("Import() error = %v, want ErrStorage", err)
	}
}
