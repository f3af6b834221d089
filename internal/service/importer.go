package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/repository"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Importer copies snippets from one store into another, e.g. a directory of
// hand-written Markdown files into the database. Records that already exist
// in the destination are left alone, so an import can be re-run safely.
type Importer struct {
	src    repository.SnippetRepository
	dst    repository.SnippetRepository
	logger *slog.Logger
}

func NewImporter(src, dst repository.SnippetRepository, logger *slog.Logger) *Importer {
	return &Importer{src: src, dst: dst, logger: logger}
}

// Import copies every snippet of the source. Timestamps and descriptions are
// carried over as stored; the destination assigns its own IDs.
func (im *Importer) Import(ctx context.Context) (ImportResult, error) {
	var res ImportResult

	snippets, err := im.src.List(ctx, repository.ListOptions{WithContent: true})
	if err != nil {
		return res, fmt.Errorf("import: listing source: %w", err)
	}

	for _, sn := range snippets {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, err := im.dst.Get(ctx, sn.Category, sn.Slug)
		switch {
		case err == nil:
			res.Skipped++
			im.logger.Info("snippet exists, skipping",
				slog.String("category", sn.Category),
				slog.String("slug", sn.Slug),
			)
			continue
		case !errors.Is(err, apperror.ErrNotFound):
			return res, fmt.Errorf("import: checking %s/%s: %w", sn.Category, sn.Slug, err)
		}

		record := sn
		record.ID = ""
		if err := im.dst.Create(ctx, &record); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("import: creating %s/%s: %w", sn.Category, sn.Slug, err)
		}

		res.Imported++
		im.logger.Info("snippet imported",
			slog.String("category", sn.Category),
			slog.String("slug", sn.Slug),
		)
	}

	return res, nil
}
