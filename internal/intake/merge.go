package intake

import (
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

const defaultCurrency = "USD"

// merge builds the transaction to commit. Each field takes the user override
// first, then the extracted value, then a fallback. An unresolved amount has no
// fallback and fails validation.
func (p *Pipeline) merge(preview Preview, typed string, ov Overrides) (model.Transaction, error) {
	rec := preview.Record
	session := p.session

	txn := model.Transaction{
		UserID:   session.UserID,
		Category: model.CategoryUncategorized,
		Date:     session.Today(),
		Currency: session.Currency,
	}
	if txn.Currency == "" {
		txn.Currency = defaultCurrency
	}

	switch {
	case ov.Amount != nil:
		txn.Amount = *ov.Amount
	case rec.Amount != nil:
		txn.Amount = *rec.Amount
	default:
		return model.Transaction{}, common.NewValidationError("amount", "could not be determined")
	}

	if c := firstCategory(ov.Category, rec.Category); c != nil {
		txn.Category = *c
	}
	if d := ov.Date; d != nil {
		txn.Date = model.DateOf(*d)
	} else if rec.Date != nil {
		txn.Date = model.DateOf(*rec.Date)
	}
	if c := firstString(ov.Currency, rec.Currency); c != "" {
		txn.Currency = strings.ToUpper(c)
	}
	txn.Merchant = firstString(ov.Merchant, rec.Merchant)

	// Description prefers what the user actually typed.
	switch {
	case ov.Description != nil:
		txn.Description = strings.TrimSpace(*ov.Description)
	case strings.TrimSpace(typed) != "":
		txn.Description = strings.TrimSpace(typed)
	case strings.TrimSpace(preview.RawInput) != "":
		txn.Description = strings.TrimSpace(preview.RawInput)
	case rec.Description != nil:
		txn.Description = *rec.Description
	}

	switch {
	case ov.IsRecurring != nil:
		txn.IsRecurring = *ov.IsRecurring
	case rec.IsRecurring != nil:
		txn.IsRecurring = *rec.IsRecurring
	}

	if ov.Tags != nil {
		txn.Tags = append([]string(nil), ov.Tags...)
	} else if len(rec.Tags) > 0 {
		txn.Tags = append([]string(nil), rec.Tags...)
	}

	txn.Provenance = &model.Provenance{
		Confidence: rec.Confidence,
		RawInput:   preview.RawInput,
		Model:      preview.Model,
		Source:     preview.Source,
	}

	return txn, nil
}

func firstCategory(values ...*model.Category) *model.Category {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}
