package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDBWithOptions(t *testing.T) {
	ctx := context.Background()
	guest := model.GuestUser(Day("2024-01-01"))
	customRan := false

	db := SetupTestDBWithOptions(t, TestDBOptions{
		Users: []model.User{guest},
		Transactions: []model.Transaction{
			NewTransaction(guest.ID).Amount(12.5).On("2024-05-01").Merchant("Deli").Build(),
			NewTransaction(guest.ID).Amount(30).Category(model.CategoryTransport).On("2024-05-02").Build(),
		},
		Budgets: []model.Budget{
			{ID: "b1", UserID: guest.ID, Category: model.CategoryFood, Period: model.BudgetPeriodMonthly, Limit: 100},
		},
		CustomSetup: func(context.Context, *storage.Store) error {
			customRan = true
			return nil
		},
	})

	assert.True(t, customRan)

	user, err := db.Store.GetUser(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guest", user.Name)

	txns, err := db.Store.GetTransactions(ctx, guest.ID, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, model.CategoryTransport, txns[0].Category)
	assert.NotEmpty(t, txns[1].ID)

	budgets, err := db.Store.GetBudgets(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.InDelta(t, 12.5, budgets[0].Spent, 0.001)
}

func TestTransactionBuilder(t *testing.T) {
	txn := NewTransaction("u1").
		Amount(4.5).
		Category(model.CategoryHealth).
		On("2024-03-09").
		Merchant("Pharmacy").
		Description("vitamins").
		Build()

	assert.Equal(t, "u1", txn.UserID)
	assert.InDelta(t, 4.5, txn.Amount, 0.001)
	assert.Equal(t, model.CategoryHealth, txn.Category)
	assert.Equal(t, "2024-03-09", txn.DayKey())
	assert.Equal(t, "Pharmacy", txn.Merchant)
	assert.Equal(t, "vitamins", txn.Description)
	assert.Equal(t, "USD", txn.Currency)
}

func TestDay(t *testing.T) {
	assert.Equal(t, "2024-02-29", Day("2024-02-29").Format(model.DateLayout))
	assert.Panics(t, func() { Day("not a date") })
}
