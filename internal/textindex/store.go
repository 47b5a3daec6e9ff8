// Package textindex is the inverted full-text index the literal, regex,
// and symbol search executors read from: an FTS5 virtual table keyed
// externally by path, with writes committed in batches.
package textindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coderune/rune/pkg/types"
)

// SymbolSpan is the line range a named symbol occupies, stored alongside
// Document.Symbols so symbol-mode search can point at the definition
// instead of just the owning document.
type SymbolSpan struct {
	Name      string
	Kind      types.SymbolKind
	StartLine int
	EndLine   int
}

// Document is one file's full-text-indexed representation.
type Document struct {
	Path       string
	Repository string
	Language   types.Language
	Symbols    []SymbolSpan
	Content    string
}

// Index is the sqlite/FTS5-backed text index.
type Index struct {
	db *sql.DB

	batchSize int
	batchWait time.Duration

	mu      sync.Mutex
	pending []Document
	deleted map[string]bool
	timer   *time.Timer
}

// Open opens (creating if necessary) the FTS5 database at dbPath.
// batchSize and batchWait bound how long a write can sit unflushed
// before Upsert forces a commit (defaults: 50 files or 250ms).
func Open(ctx context.Context, dbPath string, batchSize int, batchWait time.Duration) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("textindex: open %s: %w", dbPath, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("textindex: enable WAL: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if batchSize <= 0 {
		batchSize = 50
	}
	if batchWait <= 0 {
		batchWait = 250 * time.Millisecond
	}

	return &Index{
		db:        db,
		batchSize: batchSize,
		batchWait: batchWait,
		deleted:   make(map[string]bool),
	}, nil
}

// Close flushes any pending batch and closes the database.
func (idx *Index) Close() error {
	if err := idx.Flush(context.Background()); err != nil {
		return err
	}
	return idx.db.Close()
}

// Upsert queues doc for indexing. The write commits once the pending
// batch reaches batchSize documents or batchWait elapses, whichever is
// first.
func (idx *Index) Upsert(ctx context.Context, doc Document) error {
	idx.mu.Lock()
	idx.pending = append(idx.pending, doc)
	delete(idx.deleted, doc.Path)
	full := len(idx.pending) >= idx.batchSize
	if idx.timer == nil {
		idx.timer = time.AfterFunc(idx.batchWait, idx.flushAsync)
	}
	idx.mu.Unlock()

	if full {
		return idx.Flush(ctx)
	}
	return nil
}

// Delete removes path from the index immediately: deletion is never
// worth batching, a stale hit after a file disappears is worse than a
// late insert.
func (idx *Index) Delete(ctx context.Context, path string) error {
	idx.mu.Lock()
	idx.deleted[path] = true
	filtered := idx.pending[:0]
	for _, d := range idx.pending {
		if d.Path != path {
			filtered = append(filtered, d)
		}
	}
	idx.pending = filtered
	idx.mu.Unlock()

	return idx.deletePath(ctx, idx.db, path)
}

func (idx *Index) flushAsync() {
	_ = idx.Flush(context.Background())
}

// Flush commits every pending document as one transaction: each write is
// a delete-then-insert against path, since FTS5 tables have no native
// unique constraint to upsert against.
func (idx *Index) Flush(ctx context.Context) error {
	idx.mu.Lock()
	batch := idx.pending
	idx.pending = nil
	if idx.timer != nil {
		idx.timer.Stop()
		idx.timer = nil
	}
	idx.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("textindex: begin flush tx: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range batch {
		if err := idx.deletePath(ctx, tx, doc.Path); err != nil {
			return err
		}
		names := make([]string, len(doc.Symbols))
		for i, s := range doc.Symbols {
			names[i] = s.Name
		}
		spans, err := json.Marshal(doc.Symbols)
		if err != nil {
			return fmt.Errorf("textindex: marshal symbol spans %s: %w", doc.Path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents(path, repository, language, symbols, symbol_spans, content) VALUES (?, ?, ?, ?, ?, ?)`,
			doc.Path, doc.Repository, string(doc.Language), strings.Join(names, " "), string(spans), doc.Content); err != nil {
			return fmt.Errorf("textindex: insert %s: %w", doc.Path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents_meta(path, size_bytes, symbol_count) VALUES (?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET size_bytes = excluded.size_bytes, symbol_count = excluded.symbol_count`,
			doc.Path, len(doc.Content), len(doc.Symbols)); err != nil {
			return fmt.Errorf("textindex: update documents_meta %s: %w", doc.Path, err)
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (idx *Index) deletePath(ctx context.Context, ex execer, path string) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path); err != nil {
		return fmt.Errorf("textindex: delete %s: %w", path, err)
	}
	if _, err := ex.ExecContext(ctx, "DELETE FROM documents_meta WHERE path = ?", path); err != nil {
		return fmt.Errorf("textindex: delete meta %s: %w", path, err)
	}
	return nil
}
