package sheets

import (
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionRow represents a single row in the transaction listing.
type TransactionRow struct {
	Date        time.Time
	Amount      decimal.Decimal
	Currency    string
	Merchant    string
	Category    string
	Description string
	Source      string
}

// CategoryRow represents a single row in the category breakdown.
type CategoryRow struct {
	Category   string
	Amount     decimal.Decimal
	Percentage decimal.Decimal
	Count      int
}

// DayRow represents a single row in the daily trend.
type DayRow struct {
	Date   string
	Amount decimal.Decimal
}

// DateRange represents the time period covered by the report.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Report holds everything written to the spreadsheet.
type Report struct {
	DateRange    DateRange
	Owner        string
	TotalSpent   decimal.Decimal
	Categories   []CategoryRow
	Trend        []DayRow
	Transactions []TransactionRow
}

// BuildReport assembles a report from a user's transactions and their projection.
// Transactions are listed newest first.
func BuildReport(owner string, txns []model.Transaction, summary analytics.Summary) Report {
	report := Report{
		Owner:        owner,
		TotalSpent:   decimal.NewFromFloat(summary.TotalSpent).Round(2),
		Categories:   make([]CategoryRow, 0, len(summary.TopCategories)),
		Trend:        make([]DayRow, 0, len(summary.Trend)),
		Transactions: make([]TransactionRow, 0, len(txns)),
	}

	for _, c := range summary.TopCategories {
		report.Categories = append(report.Categories, CategoryRow{
			Category:   string(c.Category),
			Amount:     decimal.NewFromFloat(c.Amount).Round(2),
			Percentage: decimal.NewFromFloat(c.Percentage),
			Count:      c.Count,
		})
	}
	for _, d := range summary.Trend {
		report.Trend = append(report.Trend, DayRow{Date: d.Date, Amount: decimal.NewFromFloat(d.Amount).Round(2)})
	}

	for _, txn := range txns {
		row := TransactionRow{
			Date:        txn.Date,
			Amount:      decimal.NewFromFloat(txn.Amount).Round(2),
			Currency:    txn.Currency,
			Merchant:    txn.Merchant,
			Category:    string(txn.Category),
			Description: txn.Description,
		}
		if txn.Provenance != nil {
			row.Source = string(txn.Provenance.Source)
		}
		report.Transactions = append(report.Transactions, row)

		if report.DateRange.Start.IsZero() || txn.Date.Before(report.DateRange.Start) {
			report.DateRange.Start = txn.Date
		}
		if txn.Date.After(report.DateRange.End) {
			report.DateRange.End = txn.Date
		}
	}

	sort.SliceStable(report.Transactions, func(i, j int) bool {
		return report.Transactions[i].Date.After(report.Transactions[j].Date)
	})

	return report
}
