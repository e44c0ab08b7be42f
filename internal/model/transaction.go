// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used at every boundary.
const DateLayout = "2006-01-02"

// Source records how a transaction entered the ledger.
type Source string

// Source constants.
const (
	SourceText   Source = "text"
	SourceImage  Source = "image"
	SourceManual Source = "manual"
	SourceOFX    Source = "ofx"
)

// Provenance captures where an AI-assisted transaction came from.
type Provenance struct {
	Confidence *float64 `json:"confidence,omitempty"`
	RawInput   string   `json:"rawInput,omitempty"`
	Model      string   `json:"model,omitempty"`
	Source     Source   `json:"source,omitempty"`
}

// Transaction is a confirmed spending record. It is never mutated after creation.
type Transaction struct {
	Date        time.Time   `json:"date"`
	CreatedAt   time.Time   `json:"createdAt"`
	Provenance  *Provenance `json:"provenance,omitempty"`
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Currency    string      `json:"currency"`
	Category    Category    `json:"category"`
	Merchant    string      `json:"merchant"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags,omitempty"`
	Amount      float64     `json:"amount"`
	IsRecurring bool        `json:"isRecurring"`
}

// DateOf returns the calendar day of t, read in t's own location, as UTC
// midnight. Every stored date is in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts an ISO calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// DayKey returns the calendar day of the transaction in DateLayout.
func (t Transaction) DayKey() string {
	return t.Date.Format(DateLayout)
}
