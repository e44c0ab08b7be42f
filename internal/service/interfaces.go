// Package service defines the interfaces shared between application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Nil fields do not filter.
type TransactionFilter struct {
	Category *model.Category
	Since    *time.Time // inclusive, compared by calendar day
}

// Storage defines the contract for the record store.
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user model.User) error
	EnsureUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)

	// Transaction operations
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	CreateTransaction(ctx context.Context, txn model.Transaction) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID string) error

	// Budget operations
	GetBudgets(ctx context.Context, userID string) ([]model.Budget, error)
	UpsertBudget(ctx context.Context, budget model.Budget) error

	Close() error
}

// Extractor turns raw user input into a partial transaction record.
// Implementations never fail; an empty record means the extraction was inconclusive.
type Extractor interface {
	ParseText(ctx context.Context, input string) model.PartialRecord
	ParseImage(ctx context.Context, data []byte, mimeType string) model.PartialRecord
}

// Advisor answers free-form questions about spending history.
type Advisor interface {
	Ask(ctx context.Context, history []model.Transaction, query string) string
}

// Session carries the identity and clock of the active user.
// It is passed explicitly instead of living in package state.
type Session struct {
	Clock    func() time.Time
	UserID   string
	Currency string
}

// NewSession creates a session for the given user using the wall clock.
func NewSession(user model.User) Session {
	return Session{
		UserID:   user.ID,
		Currency: user.Currency,
		Clock:    time.Now,
	}
}

// Now returns the session's current time.
func (s Session) Now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

// Today returns the session's current calendar day at midnight.
func (s Session) Today() time.Time {
	return model.DateOf(s.Now())
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
