package textindex

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// migrations creates the FTS5 virtual table the text index searches
// against, its vocabulary view for fuzzy expansion, and a companion
// documents_meta table tracking per-document byte and symbol counts for
// the stats operation.
var migrations = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
		path UNINDEXED,
		repository,
		language UNINDEXED,
		symbols,
		symbol_spans UNINDEXED,
		content
	);
	CREATE VIRTUAL TABLE IF NOT EXISTS documents_vocab USING fts5vocab('documents', 'row');
	CREATE TABLE IF NOT EXISTS documents_meta (
		path            TEXT PRIMARY KEY,
		size_bytes      INTEGER NOT NULL,
		symbol_count    INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	);`,
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	var current int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_meta LIMIT 1").Scan(&current)
	if err == sql.ErrNoRows || err != nil {
		current = 0
	}

	if current >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("textindex: begin migration tx: %w", err)
	}
	defer tx.Rollback()

	for v := current; v < schemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("textindex: apply migration %d: %w", v+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_meta"); err != nil {
		return fmt.Errorf("textindex: reset schema_meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_meta(version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("textindex: record schema version: %w", err)
	}
	return tx.Commit()
}
