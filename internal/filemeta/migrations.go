package filemeta

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion is bumped whenever migrations are appended below.
const schemaVersion = 1

// migrations is applied in order against a fresh or existing database.
// Versions are plain integers: filemeta has no need for compatibility
// ranges, just "already applied or not".
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS file_meta (
		path         TEXT PRIMARY KEY,
		repository   TEXT NOT NULL,
		size_bytes   INTEGER NOT NULL,
		mtime        INTEGER NOT NULL,
		content_hash BLOB NOT NULL,
		language     TEXT NOT NULL,
		indexed_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_file_meta_repository ON file_meta(repository);`,
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	var current int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_meta LIMIT 1").Scan(&current)
	if err == sql.ErrNoRows {
		current = 0
	} else if err != nil {
		// schema_meta doesn't exist yet: starting from an empty database.
		current = 0
	}

	if current >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("filemeta: begin migration tx: %w", err)
	}
	defer tx.Rollback()

	for v := current; v < schemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("filemeta: apply migration %d: %w", v+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_meta"); err != nil {
		return fmt.Errorf("filemeta: reset schema_meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_meta(version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("filemeta: record schema version: %w", err)
	}

	return tx.Commit()
}
