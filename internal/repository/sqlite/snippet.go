package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/content"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB doesn't implement repository.SnippetRepository, the compiler errors here.
var _ repository.SnippetRepository = (*DB)(nil)

const (
	metaColumns = `id, category, slug, title, language, description, created_at, updated_at`
	allColumns  = metaColumns + `, content`
)

// Create inserts a new snippet into the database.
//
// ID GENERATION WITH xid:
// xid generates globally unique, URL-safe, time-sortable 20 char IDs,
// e.g. "cv37rs3pp9olc6atsptg".
//
// PARAMETERIZED QUERIES (the ? placeholders):
// NEVER build SQL strings with fmt.Sprintf or string concatenation!
// The driver safely escapes every value passed as an argument.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	if err := checkKeys(snippet.Category, snippet.Slug); err != nil {
		return err
	}

	snippet.ID = xid.New().String()
	if snippet.CreatedAt.IsZero() {
		snippet.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, category, slug, title, language, description, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Category,
		snippet.Slug,
		snippet.Title,
		snippet.Language,
		snippet.Description,
		snippet.Content,
		snippet.CreatedAt,
		nullTime(snippet.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("snippet", snippet.Category+"/"+snippet.Slug)
		}
		return apperror.Storage("sqlite: creating snippet", err)
	}

	return nil
}

// Get retrieves a single snippet, body included, by its key.
//
// sql.ErrNoRows is NOT really an error; it just means "no matching row exists."
// We translate it to our app's NotFound error so the handler knows to return 404.
func (db *DB) Get(ctx context.Context, category, slug string) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+allColumns+` FROM snippets WHERE category = ? AND slug = ?`,
		category, slug,
	)

	snippet, err := scanSnippet(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", category+"/"+slug)
		}
		return nil, apperror.Storage("sqlite: getting snippet "+category+"/"+slug, err)
	}

	return snippet, nil
}

// List retrieves snippets sorted by title.
//
// defer rows.Close() is critical: sql.Rows holds a pooled connection until
// it is closed. Always check rows.Err() after the loop too.
//
// SQLite's default BINARY collation compares titles byte-wise, which is the
// same case-sensitive order the file backend produces.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	columns := metaColumns
	if opts.WithContent {
		columns = allColumns
	}

	query := `SELECT ` + columns + ` FROM snippets`
	var args []any
	if opts.Category != "" {
		if err := content.CheckKey("category", opts.Category); err != nil {
			return nil, err
		}
		query += ` WHERE category = ?`
		args = append(args, opts.Category)
	}
	query += ` ORDER BY title, category, slug`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Storage("sqlite: listing snippets", err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows, opts.WithContent)
		if err != nil {
			return nil, apperror.Storage("sqlite: scanning snippet row", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("sqlite: iterating snippets", err)
	}

	return snippets, nil
}

// Categories groups snippets by category. GROUP BY never yields a zero count,
// so empty categories are omitted for free.
func (db *DB) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM snippets GROUP BY category ORDER BY category`,
	)
	if err != nil {
		return nil, apperror.Storage("sqlite: counting categories", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, apperror.Storage("sqlite: scanning category row", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("sqlite: iterating categories", err)
	}

	return categories, nil
}

// UpdateContent replaces the body of an existing snippet.
//
// ExecContext returns a sql.Result with RowsAffected(). If no rows were
// affected, the snippet doesn't exist → return NotFound.
func (db *DB) UpdateContent(ctx context.Context, category, slug, body string, at time.Time) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET content = ?, updated_at = ? WHERE category = ? AND slug = ?`,
		body, at.UTC(), category, slug,
	)
	if err != nil {
		return nil, apperror.Storage("sqlite: updating snippet "+category+"/"+slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apperror.Storage("sqlite: checking rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("snippet", category+"/"+slug)
	}

	return db.Get(ctx, category, slug)
}

// Delete removes a snippet. Same pattern as UpdateContent: check
// RowsAffected to detect "not found".
func (db *DB) Delete(ctx context.Context, category, slug string) error {
	if err := checkKeys(category, slug); err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE category = ? AND slug = ?`,
		category, slug,
	)
	if err != nil {
		return apperror.Storage("sqlite: deleting snippet "+category+"/"+slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("sqlite: checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", category+"/"+slug)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row scanner, withContent bool) (*model.Snippet, error) {
	var (
		s       model.Snippet
		updated sql.NullTime
	)
	dest := []any{
		&s.ID, &s.Category, &s.Slug, &s.Title, &s.Language, &s.Description,
		&s.CreatedAt, &updated,
	}
	if withContent {
		dest = append(dest, &s.Content)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		s.UpdatedAt = &t
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkKeys(category, slug string) error {
	if err := content.CheckKey("category", category); err != nil {
		return err
	}
	return content.CheckKey("slug", slug)
}
