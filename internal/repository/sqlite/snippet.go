package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
)

// compile-time check that *DB implements repository.SnippetRepository
var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, user_id, title, code, programming_language, description, favorite, created_at, updated_at`

// Create inserts a new snippet, filling in ID and both timestamps.
//
// IDs come from xid: 20 URL-safe characters that sort by creation time,
// e.g. "cv37rs3pp9olc6atsptg".
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES (:id, :user_id, :title, :code, :programming_language, :description, :favorite, :created_at, :updated_at)`,
		snippet,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no snippet has this id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var snippet model.Snippet
	err := db.conn.GetContext(ctx, &snippet,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return &snippet, nil
}

// List returns one user's snippets, optionally narrowed by a title search.
//
// The search is a case-insensitive substring match: both sides go through
// casefold, so non-ASCII letters fold too. Wildcards typed by the user are
// escaped so "50%" means the literal text "50%". Title order ignores case
// the same way. The ORDER BY column comes from model.SortField's whitelist,
// never from raw input.
func (db *DB) List(ctx context.Context, filter repository.SnippetFilter) ([]model.Snippet, error) {
	var (
		sb   strings.Builder
		args = []any{filter.UserID}
	)
	sb.WriteString(`SELECT ` + snippetColumns + ` FROM snippets WHERE user_id = ?`)

	if q := strings.TrimSpace(filter.Query); q != "" {
		sb.WriteString(` AND casefold(title) LIKE '%' || casefold(?) || '%' ESCAPE '\'`)
		args = append(args, escapeLike(q))
	}

	sort := model.ParseSortField(string(filter.Sort))
	if sort.Descending() {
		fmt.Fprintf(&sb, ` ORDER BY %s DESC`, sort.Column())
	} else {
		// case-insensitive, then byte order so "Alpha" and "alpha" stay stable
		fmt.Fprintf(&sb, ` ORDER BY casefold(%[1]s) ASC, %[1]s ASC`, sort.Column())
	}
	sb.WriteString(`, updated_at DESC, id DESC`)

	snippets := []model.Snippet{}
	if err := db.conn.SelectContext(ctx, &snippets, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	return snippets, nil
}

// Update writes every mutable field and bumps UpdatedAt.
// id, user_id and created_at never change.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE snippets
		 SET title = :title, code = :code, programming_language = :programming_language,
		     description = :description, favorite = :favorite, updated_at = :updated_at
		 WHERE id = :id`,
		snippet,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}
	return requireRow(result, "snippet", snippet.ID)
}

func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	return requireRow(result, "snippet", id)
}

func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM snippets`); err != nil {
		return 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return n, nil
}

// ReplaceAll empties the snippets table and bulk-inserts snippets in one
// transaction. Missing IDs and timestamps are filled in.
func (db *DB) ReplaceAll(ctx context.Context, snippets []model.Snippet) (err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM snippets`); err != nil {
		return fmt.Errorf("sqlite: clearing snippets: %w", err)
	}

	if len(snippets) > 0 {
		now := time.Now().UTC()
		for i := range snippets {
			if snippets[i].ID == "" {
				snippets[i].ID = xid.New().String()
			}
			if snippets[i].CreatedAt.IsZero() {
				snippets[i].CreatedAt = now
			}
			if snippets[i].UpdatedAt.IsZero() {
				snippets[i].UpdatedAt = snippets[i].CreatedAt
			}
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO snippets (`+snippetColumns+`)
			 VALUES (:id, :user_id, :title, :code, :programming_language, :description, :favorite, :created_at, :updated_at)`,
			snippets,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting %d snippets: %w", len(snippets), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing replace: %w", err)
	}
	return nil
}

// requireRow turns "0 rows affected" into apperror.ErrNotFound.
func requireRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
