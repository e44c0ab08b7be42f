// Package storage provides the record store and its persistence layers.
package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Validation errors for persister arguments.
var (
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrUnknownCollection = errors.New("unknown collection")
)

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateCollection(name string) error {
	for _, known := range Collections {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

func validateAmount(field string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return common.NewValidationError(field, "must be a finite number")
	}
	if amount < 0 {
		return common.NewValidationError(field, "must not be negative")
	}
	return nil
}

// validateTransaction rejects records that would break the store's invariants.
func validateTransaction(txn *model.Transaction) error {
	if strings.TrimSpace(txn.UserID) == "" {
		return common.NewValidationError("userId", "is required")
	}
	if err := validateAmount("amount", txn.Amount); err != nil {
		return err
	}
	if !txn.Category.Valid() {
		return common.NewValidationError("category", fmt.Sprintf("%q is not a known category", txn.Category))
	}
	if txn.Date.IsZero() {
		return common.NewValidationError("date", "is missing or unparseable")
	}
	return nil
}

func validateBudget(budget *model.Budget) error {
	if strings.TrimSpace(budget.ID) == "" {
		return common.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(budget.UserID) == "" {
		return common.NewValidationError("userId", "is required")
	}
	if !budget.Category.Valid() {
		return common.NewValidationError("category", fmt.Sprintf("%q is not a known category", budget.Category))
	}
	if err := validateAmount("limit", budget.Limit); err != nil {
		return err
	}
	if !budget.Period.Valid() {
		return common.NewValidationError("period", fmt.Sprintf("%q is not monthly or weekly", budget.Period))
	}
	return nil
}

func validateUser(user *model.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return common.NewValidationError("id", "is required")
	}
	return nil
}
