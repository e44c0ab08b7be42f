package model

import (
	"fmt"
	"strings"
	"time"
)

// UnknownMarker is displayed for fields the extraction could not resolve.
const UnknownMarker = "unknown"

// PartialRecord is a transaction candidate produced by extraction.
// A nil field was not resolved; nothing is guessed.
type PartialRecord struct {
	Amount      *float64   `json:"amount,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	Merchant    *string    `json:"merchant,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsRecurring *bool      `json:"isRecurring,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// IsEmpty reports whether no field was resolved.
func (p PartialRecord) IsEmpty() bool {
	return p.Amount == nil &&
		p.Currency == nil &&
		p.Merchant == nil &&
		p.Category == nil &&
		p.Date == nil &&
		p.Description == nil &&
		p.IsRecurring == nil &&
		p.Confidence == nil &&
		len(p.Tags) == 0
}

// AmountText renders the amount or the unknown marker.
func (p PartialRecord) AmountText() string {
	if p.Amount == nil {
		return UnknownMarker
	}
	currency := ""
	if p.Currency != nil {
		currency = " " + *p.Currency
	}
	return fmt.Sprintf("%.2f%s", *p.Amount, currency)
}

// CategoryText renders the category or the unknown marker.
func (p PartialRecord) CategoryText() string {
	if p.Category == nil {
		return UnknownMarker
	}
	return string(*p.Category)
}

// DateText renders the date or the unknown marker.
func (p PartialRecord) DateText() string {
	if p.Date == nil {
		return UnknownMarker
	}
	return p.Date.Format(DateLayout)
}

// MerchantText renders the merchant or the unknown marker.
func (p PartialRecord) MerchantText() string {
	return stringOrUnknown(p.Merchant)
}

// DescriptionText renders the description or the unknown marker.
func (p PartialRecord) DescriptionText() string {
	return stringOrUnknown(p.Description)
}

func stringOrUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return UnknownMarker
	}
	return *s
}
