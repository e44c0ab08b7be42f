package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is PRAGMA user_version after every step has run.
const ExpectedSchemaVersion = 2

type schemaStep struct {
	apply   func(context.Context, *sql.Tx) error
	summary string
	version int
}

// schemaSteps run in order; each one runs in its own transaction together
// with the user_version bump.
var schemaSteps = []schemaStep{
	{
		version: 1,
		summary: "collections table",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS collections (
				name       TEXT PRIMARY KEY,
				data       TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`)
			return err
		},
	},
	{
		version: 2,
		summary: "empty collections",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO collections (name, data) VALUES (?, '[]')`)
			if err != nil {
				return err
			}
			defer func() { _ = stmt.Close() }()
			for _, name := range Collections {
				if _, err := stmt.ExecContext(ctx, name); err != nil {
					return fmt.Errorf("collection %s: %w", name, err)
				}
			}
			return nil
		},
	},
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// Migrate brings the schema up to ExpectedSchemaVersion. A database written
// by a newer build is refused.
func (p *SQLitePersister) Migrate(ctx context.Context) error {
	current, err := schemaVersion(ctx, p.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", current, ExpectedSchemaVersion)
	}

	for _, step := range schemaSteps {
		if step.version <= current {
			continue
		}
		if err := p.runStep(ctx, step); err != nil {
			return fmt.Errorf("migration %d (%s): %w", step.version, step.summary, err)
		}
		slog.Debug("Applied migration", "version", step.version, "summary", step.summary)
	}
	return nil
}

func (p *SQLitePersister) runStep(ctx context.Context, step schemaStep) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := step.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.version)); err != nil {
		return err
	}
	return tx.Commit()
}
