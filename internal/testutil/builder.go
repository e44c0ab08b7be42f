package testutil

import (
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// TransactionBuilder builds valid transactions fluently.
//
// Example:
//
//	txn := testutil.NewTransaction("guest").
//		Amount(12.5).
//		Category(model.CategoryFood).
//		On("2024-05-01").
//		Build()
type TransactionBuilder struct {
	txn model.Transaction
}

// NewTransaction starts a Food transaction of 10 USD on 2024-01-01 for userID.
func NewTransaction(userID string) *TransactionBuilder {
	return &TransactionBuilder{txn: model.Transaction{
		UserID:   userID,
		Amount:   10,
		Currency: "USD",
		Category: model.CategoryFood,
		Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// Amount sets the amount.
func (b *TransactionBuilder) Amount(amount float64) *TransactionBuilder {
	b.txn.Amount = amount
	return b
}

// Category sets the category.
func (b *TransactionBuilder) Category(c model.Category) *TransactionBuilder {
	b.txn.Category = c
	return b
}

// On sets the date from an ISO string.
func (b *TransactionBuilder) On(date string) *TransactionBuilder {
	b.txn.Date = Day(date)
	return b
}

// Merchant sets the merchant.
func (b *TransactionBuilder) Merchant(m string) *TransactionBuilder {
	b.txn.Merchant = m
	return b
}

// Description sets the description.
func (b *TransactionBuilder) Description(d string) *TransactionBuilder {
	b.txn.Description = d
	return b
}

// Build returns the transaction.
func (b *TransactionBuilder) Build() model.Transaction {
	txn := b.txn
	if txn.Tags != nil {
		txn.Tags = append([]string(nil), txn.Tags...)
	}
	return txn
}
