package ofx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// fitidTagPrefix marks imported transactions so a statement can be imported twice.
const fitidTagPrefix = "ofx:"

// ruleTagPrefix marks transactions categorized by a merchant rule.
const ruleTagPrefix = "rule:"

// Ledger is the part of the store the importer needs.
type Ledger interface {
	GetTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error)
	CreateTransaction(ctx context.Context, txn model.Transaction) (model.Transaction, error)
}

// Result counts what an import did.
type Result struct {
	Imported      int
	Duplicates    int
	Uncategorized int
	Failed        int
	Transfers     int
}

// ProgressFunc is called after each entry is handled.
type ProgressFunc func(done, total int)

// Importer turns statement debits into transactions, asking the extractor for
// a category.
type Importer struct {
	ledger    Ledger
	extractor service.Extractor
	rules     *pattern.Matcher
	logger    *slog.Logger
	model     string
}

// NewImporter creates an importer. modelName is recorded in provenance.
func NewImporter(ledger Ledger, extractor service.Extractor, modelName string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{ledger: ledger, extractor: extractor, model: modelName, logger: logger}
}

// WithRules sets merchant rules. Entries matching a skip rule are left out, and
// entries the extractor cannot categorize take the matching rule's category.
func (im *Importer) WithRules(rules *pattern.Matcher) *Importer {
	im.rules = rules
	return im
}

// Import records every debit in entries for the session's user. Entries whose
// FITID was imported before are skipped. A failed write is counted and the
// import continues.
func (im *Importer) Import(ctx context.Context, session service.Session, entries []Entry, progress ProgressFunc) (Result, error) {
	existing, err := im.ledger.GetTransactions(ctx, session.UserID, service.TransactionFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("failed to load existing transactions: %w", err)
	}

	imported := make(map[string]bool)
	for _, txn := range existing {
		for _, tag := range txn.Tags {
			if strings.HasPrefix(tag, fitidTagPrefix) {
				imported[tag] = true
			}
		}
	}

	var result Result
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tag := fitidTagPrefix + entry.AccountID + ":" + entry.FITID
		switch {
		case !entry.Debit:
		case entry.FITID != "" && imported[tag]:
			result.Duplicates++
		case im.isTransfer(entry):
			result.Transfers++
		default:
			txn := im.transactionFor(ctx, session, entry)
			if entry.FITID != "" {
				txn.Tags = append(txn.Tags, tag)
			}
			if _, err := im.ledger.CreateTransaction(ctx, txn); err != nil {
				im.logger.Warn("Failed to import statement entry",
					"fitid", entry.FITID,
					"merchant", entry.Merchant,
					"error", err)
				result.Failed++
				break
			}
			imported[tag] = true
			result.Imported++
			if txn.Category == model.CategoryUncategorized {
				result.Uncategorized++
			}
		}

		if progress != nil {
			progress(i+1, len(entries))
		}
	}

	im.logger.Info("OFX import finished",
		"user", session.UserID,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"transfers", result.Transfers,
		"failed", result.Failed)

	return result, nil
}

func (im *Importer) transactionFor(ctx context.Context, session service.Session, entry Entry) model.Transaction {
	raw := describe(entry)
	rec := im.extractor.ParseText(ctx, raw)

	category := model.CategoryUncategorized
	confidence := rec.Confidence
	var tags []string
	switch {
	case rec.Category != nil:
		category = *rec.Category
	case im.rules != nil:
		if rule, ok := im.rules.Match(entry.Merchant, entry.Amount); ok && !rule.Skip {
			category = rule.Category
			confidence = &rule.Confidence
			tags = append(tags, ruleTagPrefix+rule.Name)
		}
	}

	currency := entry.Currency
	if currency == "" {
		currency = session.Currency
	}

	description := entry.Memo
	if description == "" {
		description = entry.Name
	}

	return model.Transaction{
		UserID:      session.UserID,
		Amount:      entry.Amount,
		Currency:    currency,
		Category:    category,
		Date:        entry.Date,
		Merchant:    entry.Merchant,
		Description: description,
		Tags:        tags,
		Provenance: &model.Provenance{
			Confidence: confidence,
			RawInput:   raw,
			Model:      im.model,
			Source:     model.SourceOFX,
		},
	}
}

func (im *Importer) isTransfer(entry Entry) bool {
	if im.rules == nil {
		return false
	}
	rule, ok := im.rules.Match(entry.Merchant, entry.Amount)
	return ok && rule.Skip
}

// describe renders an entry as the sentence sent for categorization.
func describe(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paid %.2f", e.Amount)
	if e.Currency != "" {
		fmt.Fprintf(&b, " %s", e.Currency)
	}
	fmt.Fprintf(&b, " to %s on %s", e.Merchant, e.Date.Format(model.DateLayout))
	if e.Memo != "" && e.Memo != e.Merchant {
		fmt.Fprintf(&b, " (%s)", e.Memo)
	}
	return b.String()
}
