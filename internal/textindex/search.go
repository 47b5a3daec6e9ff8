package textindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Hit is a single FTS5 match: the document plus its decoded symbol
// spans, so the symbol executor can point a Result at the matching
// definition's line range instead of just the owning document.
type Hit struct {
	Path        string
	Repository  string
	Language    string
	Content     string
	SymbolSpans []SymbolSpan
}

// filterClause builds the WHERE fragment shared by Match and Scan for
// the repositories allowlist. file_patterns are applied by the caller
// against Path, since FTS5 has no native glob operator that matches
// doublestar syntax.
func filterClause(repositories []string) (string, []any) {
	if len(repositories) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(repositories))
	args := make([]any, len(repositories))
	for i, r := range repositories {
		placeholders[i] = "?"
		args[i] = r
	}
	return " AND repository IN (" + strings.Join(placeholders, ",") + ")", args
}

// Match runs an FTS5 MATCH query against content (literal mode) or
// symbols (symbol mode), restricted to repositories if non-empty. FTS5
// matches against the table, so the column restriction goes into the
// query string as a column filter.
func (idx *Index) Match(ctx context.Context, column, query string, repositories []string, limit int) ([]Hit, error) {
	if column != "content" && column != "symbols" {
		return nil, fmt.Errorf("textindex: invalid match column %q", column)
	}

	clause, args := filterClause(repositories)
	sqlQuery := `SELECT path, repository, language, content, symbol_spans FROM documents
		 WHERE documents MATCH ?` + clause + `
		 ORDER BY rank LIMIT ?`

	queryArgs := append([]any{column + ": (" + query + ")"}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("textindex: match: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// Scan iterates every document matching repositories (or all documents
// if repositories is empty), invoking fn with each one. The regex
// executor uses this instead of MATCH, since a regular expression has
// no FTS5 equivalent and must scan stored content directly.
func (idx *Index) Scan(ctx context.Context, repositories []string, fn func(Hit) error) error {
	clause, args := filterClause(repositories)
	sqlQuery := "SELECT path, repository, language, content, symbol_spans FROM documents WHERE 1=1" + clause

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return fmt.Errorf("textindex: scan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return err
		}
		if err := fn(h); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetContent returns the stored content for path, so context-line
// enrichment never touches disk during a search.
func (idx *Index) GetContent(ctx context.Context, path string) (string, error) {
	var content string
	row := idx.db.QueryRowContext(ctx, "SELECT content FROM documents WHERE path = ?", path)
	if err := row.Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("textindex: get content %s: %w", path, err)
	}
	return content, nil
}

// Stats reports the document count, symbol count, and total indexed
// content size for stats.indexed_files / total_symbols / index_size_bytes.
type Stats struct {
	DocumentCount  int64
	TotalSymbols   int64
	IndexSizeBytes int64
}

// Stats computes the current index size from documents_meta.
func (idx *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := idx.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(symbol_count), 0), COALESCE(SUM(size_bytes), 0) FROM documents_meta")
	if err := row.Scan(&s.DocumentCount, &s.TotalSymbols, &s.IndexSizeBytes); err != nil {
		return Stats{}, fmt.Errorf("textindex: stats: %w", err)
	}
	return s, nil
}

// Paths returns every indexed document path, for startup reconciliation
// against the FileMeta store.
func (idx *Index) Paths(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT path FROM documents_meta")
	if err != nil {
		return nil, fmt.Errorf("textindex: paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("textindex: scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Terms returns the index's term dictionary via the fts5vocab table.
// Fuzzy expansion consults this so Levenshtein variants are only
// generated for terms that can actually match something.
func (idx *Index) Terms(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT term FROM documents_vocab")
	if err != nil {
		return nil, fmt.Errorf("textindex: terms: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("textindex: scan term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	var hits []Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func scanHit(rows *sql.Rows) (Hit, error) {
	var h Hit
	var spans string
	if err := rows.Scan(&h.Path, &h.Repository, &h.Language, &h.Content, &spans); err != nil {
		return Hit{}, fmt.Errorf("textindex: scan row: %w", err)
	}
	if spans != "" {
		if err := json.Unmarshal([]byte(spans), &h.SymbolSpans); err != nil {
			return Hit{}, fmt.Errorf("textindex: unmarshal symbol spans for %s: %w", h.Path, err)
		}
	}
	return h, nil
}
