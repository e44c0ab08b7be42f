// Package analytics derives aggregate spending views from transactions.
// Everything here is a pure function of its input; nothing reads the store.
package analytics

import (
	"sort"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category   model.Category `json:"category"`
	Amount     float64        `json:"amount"`
	Percentage float64        `json:"percentage"`
	Count      int            `json:"count"`
}

// DayTotal is the spend of one calendar day.
type DayTotal struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// Summary is the aggregate view of a set of transactions.
type Summary struct {
	TopCategories    []CategoryTotal `json:"topCategories"`
	Trend            []DayTotal      `json:"trend"`
	TotalSpent       float64         `json:"totalSpent"`
	TransactionCount int             `json:"transactionCount"`
}

var hundred = decimal.NewFromInt(100)

// Project computes totals per category and per day. Sums are accumulated as
// decimals so cents do not drift. Categories are ordered by amount descending
// (ties by name) and the trend by date ascending, with only days that have
// transactions.
func Project(transactions []model.Transaction) Summary {
	total := decimal.Zero
	byCategory := make(map[model.Category]decimal.Decimal)
	countByCategory := make(map[model.Category]int)
	byDay := make(map[string]decimal.Decimal)

	for _, txn := range transactions {
		amount := decimal.NewFromFloat(txn.Amount)
		total = total.Add(amount)
		byCategory[txn.Category] = byCategory[txn.Category].Add(amount)
		countByCategory[txn.Category]++
		byDay[txn.DayKey()] = byDay[txn.DayKey()].Add(amount)
	}

	summary := Summary{
		TotalSpent:       total.InexactFloat64(),
		TransactionCount: len(transactions),
		TopCategories:    make([]CategoryTotal, 0, len(byCategory)),
		Trend:            make([]DayTotal, 0, len(byDay)),
	}

	for category, amount := range byCategory {
		percentage := decimal.Zero
		if total.IsPositive() {
			percentage = amount.Mul(hundred).Div(total).Round(2)
		}
		summary.TopCategories = append(summary.TopCategories, CategoryTotal{
			Category:   category,
			Amount:     amount.InexactFloat64(),
			Percentage: percentage.InexactFloat64(),
			Count:      countByCategory[category],
		})
	}
	sort.Slice(summary.TopCategories, func(i, j int) bool {
		a, b := summary.TopCategories[i], summary.TopCategories[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Category < b.Category
	})

	for day, amount := range byDay {
		summary.Trend = append(summary.Trend, DayTotal{Date: day, Amount: amount.InexactFloat64()})
	}
	sort.Slice(summary.Trend, func(i, j int) bool {
		return summary.Trend[i].Date < summary.Trend[j].Date
	})

	return summary
}
