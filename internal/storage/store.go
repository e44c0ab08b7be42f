package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/google/uuid"
)

// Collection names used by every persister.
const (
	CollectionUsers        = "users"
	CollectionTransactions = "transactions"
	CollectionBudgets      = "budgets"
)

// Collections lists every persisted collection.
var Collections = []string{CollectionUsers, CollectionTransactions, CollectionBudgets}

// Persister is the durable layer behind the store. Each collection is a JSON array.
type Persister interface {
	// Load returns nil data when the collection has never been saved.
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, data []byte) error
	Close() error
}

// Store holds users, transactions and budgets in memory and writes the affected
// collection through to its persister on every mutation.
type Store struct {
	persister    Persister
	logger       *slog.Logger
	now          func() time.Time
	corrupted    []string
	users        []model.User
	transactions []model.Transaction
	budgets      []model.Budget
	mu           sync.Mutex
}

var _ service.Storage = (*Store)(nil)

// Open loads every collection from the persister. A collection holding malformed
// JSON is reset to empty and logged; it never fails startup.
func Open(ctx context.Context, persister Persister, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		persister: persister,
		logger:    logger,
		now:       time.Now,
	}

	if err := loadCollection(ctx, s, CollectionUsers, &s.users); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, s, CollectionTransactions, &s.transactions); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, s, CollectionBudgets, &s.budgets); err != nil {
		return nil, err
	}

	s.dropInvalidTransactions()

	logger.Debug("record store loaded",
		"users", len(s.users),
		"transactions", len(s.transactions),
		"budgets", len(s.budgets))

	return s, nil
}

func loadCollection[T any](ctx context.Context, s *Store, name string, dest *[]T) error {
	data, err := s.persister.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	if len(data) == 0 {
		*dest = nil
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("resetting corrupted collection",
			"collection", name,
			"error", fmt.Errorf("%w: %w", common.ErrStorageCorruption, err))
		s.corrupted = append(s.corrupted, name)
		*dest = nil
		return nil
	}

	*dest = items
	return nil
}

// dropInvalidTransactions enforces the category/date invariant on loaded data
// and brings older records onto UTC calendar dates.
func (s *Store) dropInvalidTransactions() {
	kept := s.transactions[:0]
	for _, txn := range s.transactions {
		if err := validateTransaction(&txn); err != nil {
			s.logger.Warn("dropping invalid stored transaction", "id", txn.ID, "error", err)
			continue
		}
		txn.Date = model.DateOf(txn.Date)
		kept = append(kept, txn)
	}
	s.transactions = kept
}

// Corrupted returns the collections that were reset during Open.
func (s *Store) Corrupted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.corrupted...)
}

// Close closes the underlying persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

func (s *Store) save(ctx context.Context, name string, items any) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.persister.Save(ctx, name, data)
}

// CreateUser stores a new user; an existing ID yields common.ErrDuplicateUser.
func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	if err := validateUser(&user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findUser(user.ID); ok {
		return fmt.Errorf("%w: %s", common.ErrDuplicateUser, user.ID)
	}
	return s.insertUser(ctx, user)
}

// EnsureUser returns the stored user with the same ID, creating it first if needed.
func (s *Store) EnsureUser(ctx context.Context, user model.User) (model.User, error) {
	if err := validateUser(&user); err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findUser(user.ID); ok {
		return existing, nil
	}
	if err := s.insertUser(ctx, user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) insertUser(ctx context.Context, user model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users = append(s.users, user)
	if err := s.save(ctx, CollectionUsers, s.users); err != nil {
		s.users = s.users[:len(s.users)-1]
		return err
	}
	return nil
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.findUser(id)
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	return user, nil
}

func (s *Store) findUser(id string) (model.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// GetTransactions returns the user's transactions, newest date first.
// Transactions on the same date keep their insertion order.
func (s *Store) GetTransactions(_ context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var since string
	if filter.Since != nil {
		since = filter.Since.Format(model.DateLayout)
	}

	result := make([]model.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.UserID != userID {
			continue
		}
		if filter.Category != nil && txn.Category != *filter.Category {
			continue
		}
		if since != "" && txn.DayKey() < since {
			continue
		}
		result = append(result, cloneTransaction(txn))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DayKey() > result[j].DayKey()
	})

	return result, nil
}

// CreateTransaction validates and appends a transaction, then persists it.
// A rejected or unsaved transaction leaves the store unchanged.
func (s *Store) CreateTransaction(ctx context.Context, txn model.Transaction) (model.Transaction, error) {
	if err := validateTransaction(&txn); err != nil {
		return model.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	} else {
		for _, existing := range s.transactions {
			if existing.ID == txn.ID {
				return model.Transaction{}, common.NewValidationError("id", "already exists")
			}
		}
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = s.now()
	}
	txn.Date = model.DateOf(txn.Date)
	txn = cloneTransaction(txn)

	s.transactions = append(s.transactions, txn)
	if err := s.save(ctx, CollectionTransactions, s.transactions); err != nil {
		s.transactions = s.transactions[:len(s.transactions)-1]
		return model.Transaction{}, fmt.Errorf("failed to persist transaction: %w", err)
	}

	s.logger.Debug("transaction created",
		"id", txn.ID,
		"user", txn.UserID,
		"category", txn.Category,
		"amount", txn.Amount)

	return cloneTransaction(txn), nil
}

// DeleteTransaction removes the transaction if the user owns it.
// Deleting an unknown ID is a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, txn := range s.transactions {
		if txn.ID == id && txn.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	previous := s.transactions
	remaining := make([]model.Transaction, 0, len(previous)-1)
	remaining = append(remaining, previous[:idx]...)
	remaining = append(remaining, previous[idx+1:]...)
	s.transactions = remaining

	if err := s.save(ctx, CollectionTransactions, s.transactions); err != nil {
		s.transactions = previous
		return fmt.Errorf("failed to persist deletion: %w", err)
	}
	return nil
}

// GetBudgets returns the user's budgets with Spent recomputed from current transactions.
func (s *Store) GetBudgets(_ context.Context, userID string) ([]model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spent := make(map[model.Category]float64)
	for _, txn := range s.transactions {
		if txn.UserID == userID {
			spent[txn.Category] += txn.Amount
		}
	}

	result := make([]model.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		b.Spent = spent[b.Category]
		result = append(result, b)
	}
	return result, nil
}

// UpsertBudget inserts a budget with an unseen ID or replaces the existing one in
// place. A budget ID held by another user is a validation error.
func (s *Store) UpsertBudget(ctx context.Context, budget model.Budget) error {
	if err := validateBudget(&budget); err != nil {
		return err
	}
	budget.Spent = 0

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := append([]model.Budget(nil), s.budgets...)

	replaced := false
	for i := range s.budgets {
		if s.budgets[i].ID == budget.ID {
			if s.budgets[i].UserID != budget.UserID {
				return common.NewValidationError("id", "belongs to another user")
			}
			s.budgets[i] = budget
			replaced = true
			break
		}
	}
	if !replaced {
		s.budgets = append(s.budgets, budget)
	}

	if err := s.save(ctx, CollectionBudgets, s.budgets); err != nil {
		s.budgets = previous
		return fmt.Errorf("failed to persist budget: %w", err)
	}
	return nil
}

func cloneTransaction(txn model.Transaction) model.Transaction {
	if txn.Tags != nil {
		txn.Tags = append([]string(nil), txn.Tags...)
	}
	if txn.Provenance != nil {
		p := *txn.Provenance
		txn.Provenance = &p
	}
	return txn
}
