package storage

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	persister, err := NewSQLitePersister(ctx, ":memory:")
	require.NoError(t, err)

	store, err := Open(ctx, persister, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTxn(userID string, amount float64, category model.Category, date string) model.Transaction {
	return model.Transaction{
		UserID:   userID,
		Amount:   amount,
		Currency: "USD",
		Category: category,
		Date:     day(date),
		Merchant: "Test Merchant",
	}
}

type failingPersister struct {
	Persister
	failSaves bool
}

func (f *failingPersister) Save(ctx context.Context, collection string, data []byte) error {
	if f.failSaves {
		return errors.New("disk full")
	}
	return f.Persister.Save(ctx, collection, data)
}

func TestStore_CreateUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	user := model.GuestUser(time.Now())
	require.NoError(t, store.CreateUser(ctx, user))

	err := store.CreateUser(ctx, user)
	require.ErrorIs(t, err, common.ErrDuplicateUser)

	got, err := store.GetUser(ctx, model.GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, "Guest", got.Name)

	_, err = store.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_EnsureUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.EnsureUser(ctx, model.User{ID: "u1", Name: "First"})
	require.NoError(t, err)

	second, err := store.EnsureUser(ctx, model.User{ID: "u1", Name: "Second"})
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name, "existing user must win")
}

func TestStore_CreateTransaction_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		txn   model.Transaction
		field string
	}{
		{
			name:  "negative amount",
			txn:   newTxn("u1", -5, model.CategoryFood, "2024-05-01"),
			field: "amount",
		},
		{
			name:  "NaN amount",
			txn:   newTxn("u1", math.NaN(), model.CategoryFood, "2024-05-01"),
			field: "amount",
		},
		{
			name:  "unknown category",
			txn:   newTxn("u1", 5, model.Category("Groceries"), "2024-05-01"),
			field: "category",
		},
		{
			name: "missing date",
			txn: model.Transaction{
				UserID:   "u1",
				Amount:   5,
				Category: model.CategoryFood,
			},
			field: "date",
		},
		{
			name:  "missing user",
			txn:   newTxn("", 5, model.CategoryFood, "2024-05-01"),
			field: "userId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)

			_, err := store.CreateTransaction(ctx, tt.txn)
			require.ErrorIs(t, err, common.ErrValidation)

			var vErr *common.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)

			txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
			require.NoError(t, err)
			assert.Empty(t, txns, "rejected transaction must not be applied")
		})
	}
}

func TestStore_GetTransactions_Ordering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	inputs := []model.Transaction{
		newTxn("u1", 1, model.CategoryFood, "2024-05-01"),
		newTxn("u1", 2, model.CategoryFood, "2024-05-03"),
		newTxn("u1", 3, model.CategoryTransport, "2024-05-02"),
		newTxn("u1", 4, model.CategoryFood, "2024-05-03"),
		newTxn("u2", 5, model.CategoryFood, "2024-05-04"),
	}
	for _, txn := range inputs {
		created, err := store.CreateTransaction(ctx, txn)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		all, err := store.GetTransactions(ctx, txn.UserID, service.TransactionFilter{})
		require.NoError(t, err)
		assert.Contains(t, all, created)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Date.After(all[i-1].Date), "must be sorted by date descending")
		}
	}

	txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 4)

	amounts := []float64{txns[0].Amount, txns[1].Amount, txns[2].Amount, txns[3].Amount}
	assert.Equal(t, []float64{2, 4, 3, 1}, amounts, "ties keep insertion order")
}

func TestStore_SameDayTiesAcrossTimeZones(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tokyo := time.FixedZone("JST", 9*60*60)
	denver := time.FixedZone("MDT", -6*60*60)

	local := newTxn("u1", 1, model.CategoryFood, "2024-05-10")
	local.Date = time.Date(2024, 5, 10, 0, 0, 0, 0, tokyo)
	first, err := store.CreateTransaction(ctx, local)
	require.NoError(t, err)

	second, err := store.CreateTransaction(ctx, newTxn("u1", 2, model.CategoryFood, "2024-05-10"))
	require.NoError(t, err)

	late := newTxn("u1", 3, model.CategoryFood, "2024-05-10")
	late.Date = time.Date(2024, 5, 10, 23, 30, 0, 0, denver)
	third, err := store.CreateTransaction(ctx, late)
	require.NoError(t, err)

	assert.Equal(t, day("2024-05-10"), first.Date)
	assert.Equal(t, day("2024-05-10"), third.Date)

	txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{txns[0].ID, txns[1].ID, txns[2].ID})
}

func TestStore_LoadNormalizesStoredDates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	stored := `[
		{"id": "a", "userId": "u1", "amount": 1, "currency": "USD", "category": "Food", "date": "2024-05-10T00:00:00+09:00"},
		{"id": "b", "userId": "u1", "amount": 2, "currency": "USD", "category": "Food", "date": "2024-05-10T00:00:00Z"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.json"), []byte(stored), 0o600))

	persister, err := NewFilePersister(dir)
	require.NoError(t, err)
	store, err := Open(ctx, persister, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "a", txns[0].ID)
	assert.Equal(t, "b", txns[1].ID)
	assert.Equal(t, day("2024-05-10"), txns[0].Date)
}

func TestStore_GetTransactions_Filters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, txn := range []model.Transaction{
		newTxn("u1", 10, model.CategoryFood, "2024-04-30"),
		newTxn("u1", 20, model.CategoryFood, "2024-05-01"),
		newTxn("u1", 30, model.CategoryHealth, "2024-05-02"),
	} {
		_, err := store.CreateTransaction(ctx, txn)
		require.NoError(t, err)
	}

	food := model.CategoryFood
	since := day("2024-05-01")

	byCategory, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{Category: &food})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	bySince, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, bySince, 2, "lower bound is inclusive")

	both, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{Category: &food, Since: &since})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.InDelta(t, 20.0, both[0].Amount, 0.0001)

	none, err := store.GetTransactions(ctx, "nobody", service.TransactionFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateTransaction(ctx, newTxn("u1", 10, model.CategoryFood, "2024-05-01"))
	require.NoError(t, err)

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
		require.NoError(t, err)

		require.NoError(t, store.DeleteTransaction(ctx, "missing", "u1"))

		after, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("other user cannot delete", func(t *testing.T) {
		require.NoError(t, store.DeleteTransaction(ctx, created.ID, "u2"))
		txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})

	t.Run("owner deletes twice", func(t *testing.T) {
		require.NoError(t, store.DeleteTransaction(ctx, created.ID, "u1"))
		require.NoError(t, store.DeleteTransaction(ctx, created.ID, "u1"))
		txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, txns)
	})
}

func TestStore_BudgetsSpentIsDerived(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertBudget(ctx, model.Budget{
		ID: "b-food", UserID: "u1", Category: model.CategoryFood, Limit: 100, Period: model.BudgetPeriodMonthly,
		Spent: 999,
	}))

	budgets, err := store.GetBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Zero(t, budgets[0].Spent, "stored spent is never trusted")

	for _, txn := range []model.Transaction{
		newTxn("u1", 12.5, model.CategoryFood, "2024-05-01"),
		newTxn("u1", 7.5, model.CategoryFood, "2024-05-02"),
		newTxn("u1", 50, model.CategoryTransport, "2024-05-02"),
		newTxn("u2", 40, model.CategoryFood, "2024-05-02"),
	} {
		_, err := store.CreateTransaction(ctx, txn)
		require.NoError(t, err)
	}

	budgets, err = store.GetBudgets(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, budgets[0].Spent, 0.0001)
	assert.InDelta(t, 80.0, budgets[0].Remaining(), 0.0001)

	require.NoError(t, store.UpsertBudget(ctx, model.Budget{
		ID: "b-food", UserID: "u1", Category: model.CategoryFood, Limit: 300, Period: model.BudgetPeriodWeekly,
	}))
	budgets, err = store.GetBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, budgets, 1, "upsert replaces in place")
	assert.InDelta(t, 300.0, budgets[0].Limit, 0.0001)
	assert.Equal(t, model.BudgetPeriodWeekly, budgets[0].Period)
}

func TestStore_UpsertBudget_Validation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.UpsertBudget(ctx, model.Budget{ID: "b", UserID: "u1", Category: "Rent", Limit: 1, Period: model.BudgetPeriodMonthly})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = store.UpsertBudget(ctx, model.Budget{ID: "b", UserID: "u1", Category: model.CategoryFood, Limit: 1, Period: "daily"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestStore_UpsertBudget_ForeignIDRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	mine := model.Budget{ID: "shared", UserID: "u1", Category: model.CategoryFood, Limit: 700, Period: model.BudgetPeriodMonthly}
	require.NoError(t, store.UpsertBudget(ctx, mine))

	theirs := mine
	theirs.UserID = "u2"
	theirs.Limit = 50
	err := store.UpsertBudget(ctx, theirs)
	assert.ErrorIs(t, err, common.ErrValidation)

	budgets, err := store.GetBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.InDelta(t, 700, budgets[0].Limit, 0.001)

	budgets, err = store.GetBudgets(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestStore_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	inner, err := NewSQLitePersister(ctx, ":memory:")
	require.NoError(t, err)
	persister := &failingPersister{Persister: inner}

	store, err := Open(ctx, persister, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	created, err := store.CreateTransaction(ctx, newTxn("u1", 10, model.CategoryFood, "2024-05-01"))
	require.NoError(t, err)

	persister.failSaves = true

	_, err = store.CreateTransaction(ctx, newTxn("u1", 20, model.CategoryFood, "2024-05-02"))
	require.Error(t, err)

	require.Error(t, store.DeleteTransaction(ctx, created.ID, "u1"))

	txns, err := store.GetTransactions(ctx, "u1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, created.ID, txns[0].ID)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	openers := map[string]func() Persister{
		"sqlite": func() Persister {
			p, err := NewSQLitePersister(ctx, filepath.Join(dir, "spice.db"))
			require.NoError(t, err)
			return p
		},
		"file": func() Persister {
			p, err := NewFilePersister(filepath.Join(dir, "json"))
			require.NoError(t, err)
			return p
		},
	}

	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			store, err := Open(ctx, open(), nil)
			require.NoError(t, err)

			require.NoError(t, store.CreateUser(ctx, model.GuestUser(time.Now())))
			created, err := store.CreateTransaction(ctx, newTxn(model.GuestUserID, 42, model.CategoryShopping, "2024-06-01"))
			require.NoError(t, err)
			require.NoError(t, store.UpsertBudget(ctx, model.Budget{
				ID: "b1", UserID: model.GuestUserID, Category: model.CategoryShopping, Limit: 100, Period: model.BudgetPeriodMonthly,
			}))
			require.NoError(t, store.Close())

			reopened, err := Open(ctx, open(), nil)
			require.NoError(t, err)
			defer func() { _ = reopened.Close() }()

			txns, err := reopened.GetTransactions(ctx, model.GuestUserID, service.TransactionFilter{})
			require.NoError(t, err)
			require.Len(t, txns, 1)
			assert.Equal(t, created.ID, txns[0].ID)
			assert.Equal(t, model.CategoryShopping, txns[0].Category)

			budgets, err := reopened.GetBudgets(ctx, model.GuestUserID)
			require.NoError(t, err)
			require.Len(t, budgets, 1)
			assert.InDelta(t, 42.0, budgets[0].Spent, 0.0001)

			_, err = reopened.GetUser(ctx, model.GuestUserID)
			require.NoError(t, err)
		})
	}
}

func TestStore_CorruptCollectionIsReset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	persister, err := NewFilePersister(dir)
	require.NoError(t, err)

	store, err := Open(ctx, persister, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, model.GuestUser(time.Now())))
	_, err = store.CreateTransaction(ctx, newTxn(model.GuestUserID, 5, model.CategoryFood, "2024-06-01"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.json"), []byte("{not json"), 0o600))

	reopened, err := Open(ctx, persister, nil)
	require.NoError(t, err, "corruption must not fail startup")

	assert.Equal(t, []string{CollectionTransactions}, reopened.Corrupted())

	txns, err := reopened.GetTransactions(ctx, model.GuestUserID, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)

	_, err = reopened.GetUser(ctx, model.GuestUserID)
	assert.NoError(t, err, "other collections are untouched")

	_, err = reopened.CreateTransaction(ctx, newTxn(model.GuestUserID, 6, model.CategoryFood, "2024-06-02"))
	require.NoError(t, err, "store stays writable after reset")
}
