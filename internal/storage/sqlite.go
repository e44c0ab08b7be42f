package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLitePersister stores each collection as a JSON document row in SQLite.
type SQLitePersister struct {
	db     *sql.DB
	dbPath string
}

// NewSQLitePersister opens (or creates) the database at dbPath and migrates it.
// Use ":memory:" for an ephemeral database.
func NewSQLitePersister(ctx context.Context, dbPath string) (*SQLitePersister, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and writes serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &SQLitePersister{db: db, dbPath: dbPath}
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return p, nil
}

// Load returns the stored document for a collection, or nil if none was saved.
func (p *SQLitePersister) Load(ctx context.Context, collection string) ([]byte, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var data string
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM collections WHERE name = ?`, collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	return []byte(data), nil
}

// Save replaces the stored document for a collection.
func (p *SQLitePersister) Save(ctx context.Context, collection string, data []byte) error {
	if err := validateCollection(collection); err != nil {
		return err
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, collection, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save collection %s: %w", collection, err)
	}

	return nil
}

// Close closes the database connection.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
