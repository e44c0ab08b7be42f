// Package testutil provides test helpers for the spice-ledger packages: an
// in-memory store with automatic cleanup and a fluent transaction builder.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// TestDB wraps a store backed by in-memory SQLite.
type TestDB struct {
	Store *storage.Store
	t     *testing.T
}

// TestDBOptions provides configuration options for test store setup.
type TestDBOptions struct {
	CustomSetup  func(context.Context, *storage.Store) error
	Users        []model.User
	Transactions []model.Transaction
	Budgets      []model.Budget
}

// SetupTestDB creates an empty in-memory store that is closed when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates an in-memory store seeded with opts.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()
	ctx := context.Background()

	persister, err := storage.NewSQLitePersister(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	store, err := storage.Open(ctx, persister, DiscardLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Store: store, t: t}

	for _, u := range opts.Users {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("failed to seed user %q: %v", u.ID, err)
		}
	}
	db.MustAddTransactions(opts.Transactions...)
	for _, b := range opts.Budgets {
		if err := store.UpsertBudget(ctx, b); err != nil {
			t.Fatalf("failed to seed budget %q: %v", b.ID, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustAddTransactions stores txns in order, failing the test on any error.
func (db *TestDB) MustAddTransactions(txns ...model.Transaction) []model.Transaction {
	db.t.Helper()

	stored := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		s, err := db.Store.CreateTransaction(context.Background(), txn)
		if err != nil {
			db.t.Fatalf("failed to seed transaction: %v", err)
		}
		stored = append(stored, s)
	}
	return stored
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Day parses an ISO date or fails loudly.
func Day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
