// Package filemeta persists the per-file bookkeeping the indexing
// pipeline needs to decide whether a file changed since its last pass:
// size, mtime, content hash, language, and when it was last indexed.
//
// It is backed by a single sqlite database with SetMaxOpenConns(1):
// sqlite serializes writers anyway, so a pool of connections just adds
// contention without adding throughput.
package filemeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coderune/rune/pkg/types"
)

// ErrNotFound is returned when a path has no recorded metadata.
var ErrNotFound = errors.New("filemeta: not found")

// Store is the sqlite-backed FileMeta table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// applies any pending migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("filemeta: open %s: %w", dbPath, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("filemeta: enable WAL: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the recorded metadata for path, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (types.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, repository, size_bytes, mtime, content_hash, language, indexed_at
		FROM file_meta WHERE path = ?`, path)

	var f types.File
	var mtimeUnix, indexedAtUnix int64
	var hash []byte
	var lang string

	err := row.Scan(&f.Path, &f.Repository, &f.SizeBytes, &mtimeUnix, &hash, &lang, &indexedAtUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return types.File{}, ErrNotFound
	}
	if err != nil {
		return types.File{}, fmt.Errorf("filemeta: get %s: %w", path, err)
	}

	f.Language = types.Language(lang)
	f.ModTime = time.Unix(mtimeUnix, 0).UTC()
	f.IndexedAt = time.Unix(indexedAtUnix, 0).UTC()
	copy(f.ContentHash[:], hash)
	return f, nil
}

// Upsert records (or replaces) a file's metadata.
func (s *Store) Upsert(ctx context.Context, f types.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_meta(path, repository, size_bytes, mtime, content_hash, language, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			repository   = excluded.repository,
			size_bytes   = excluded.size_bytes,
			mtime        = excluded.mtime,
			content_hash = excluded.content_hash,
			language     = excluded.language,
			indexed_at   = excluded.indexed_at`,
		f.Path, f.Repository, f.SizeBytes, f.ModTime.Unix(), f.ContentHash[:], string(f.Language), f.IndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("filemeta: upsert %s: %w", f.Path, err)
	}
	return nil
}

// Delete removes a single file's metadata. It is not an error for path to
// be absent.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM file_meta WHERE path = ?", path); err != nil {
		return fmt.Errorf("filemeta: delete %s: %w", path, err)
	}
	return nil
}

// ListByRepository returns every recorded file belonging to repository.
func (s *Store) ListByRepository(ctx context.Context, repository string) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, repository, size_bytes, mtime, content_hash, language, indexed_at
		FROM file_meta WHERE repository = ?`, repository)
	if err != nil {
		return nil, fmt.Errorf("filemeta: list %s: %w", repository, err)
	}
	defer rows.Close()

	var out []types.File
	for rows.Next() {
		var f types.File
		var mtimeUnix, indexedAtUnix int64
		var hash []byte
		var lang string

		if err := rows.Scan(&f.Path, &f.Repository, &f.SizeBytes, &mtimeUnix, &hash, &lang, &indexedAtUnix); err != nil {
			return nil, fmt.Errorf("filemeta: scan %s: %w", repository, err)
		}
		f.Language = types.Language(lang)
		f.ModTime = time.Unix(mtimeUnix, 0).UTC()
		f.IndexedAt = time.Unix(indexedAtUnix, 0).UTC()
		copy(f.ContentHash[:], hash)
		out = append(out, f)
	}
	return out, rows.Err()
}

// All returns every recorded file across every repository, for startup
// reconciliation against the text index.
func (s *Store) All(ctx context.Context) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, repository, size_bytes, mtime, content_hash, language, indexed_at
		FROM file_meta`)
	if err != nil {
		return nil, fmt.Errorf("filemeta: list all: %w", err)
	}
	defer rows.Close()

	var out []types.File
	for rows.Next() {
		var f types.File
		var mtimeUnix, indexedAtUnix int64
		var hash []byte
		var lang string

		if err := rows.Scan(&f.Path, &f.Repository, &f.SizeBytes, &mtimeUnix, &hash, &lang, &indexedAtUnix); err != nil {
			return nil, fmt.Errorf("filemeta: scan all: %w", err)
		}
		f.Language = types.Language(lang)
		f.ModTime = time.Unix(mtimeUnix, 0).UTC()
		f.IndexedAt = time.Unix(indexedAtUnix, 0).UTC()
		copy(f.ContentHash[:], hash)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Touch refreshes indexed_at for a path whose content hash is unchanged,
// the only write the pipeline performs in that case.
func (s *Store) Touch(ctx context.Context, path string, indexedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE file_meta SET indexed_at = ? WHERE path = ?", indexedAt.Unix(), path); err != nil {
		return fmt.Errorf("filemeta: touch %s: %w", path, err)
	}
	return nil
}

// PurgeRepository removes every recorded file for repository, used by
// the engine's reindex operation before a full re-walk.
func (s *Store) PurgeRepository(ctx context.Context, repository string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM file_meta WHERE repository = ?", repository); err != nil {
		return fmt.Errorf("filemeta: purge %s: %w", repository, err)
	}
	return nil
}
