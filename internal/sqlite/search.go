package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// SearchRepository implements search.Repository for SQLite, backed by the
// trigram-tokenized nodes_fts virtual table.
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository.
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search matches query against node titles and latest content,
// case-insensitively. FTS5's trigram tokenizer needs at least three
// characters to build a usable index match, so shorter queries fall back to
// a plain LIKE scan.
func (r *SearchRepository) Search(ctx context.Context, query string) ([]string, error) {
	if len(query) < 3 {
		return r.searchLike(ctx, query)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT n.node_id
		FROM nodes_fts f
		JOIN nodes n ON n.rowid = f.rowid
		WHERE nodes_fts MATCH ?
	`, ftsQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SearchRepository) searchLike(ctx context.Context, query string) ([]string, error) {
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT node_id FROM nodes WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ftsQuery quotes query as a single FTS5 string literal so punctuation in
// the search term isn't parsed as FTS5 query syntax.
func ftsQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
