package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// State is the lifecycle position of a surface.
type State int

// Surface states.
const (
	StateIdle State = iota
	StateExtracting
	StatePreviewReady
	StateCommitting
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StatePreviewReady:
		return "preview_ready"
	case StateCommitting:
		return "committing"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateIdle; candidate <= StateCancelled; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown intake state %q", text)
}

// Committer persists a confirmed transaction.
type Committer interface {
	CreateTransaction(ctx context.Context, txn model.Transaction) (model.Transaction, error)
}

// Config tunes debounce behavior.
type Config struct {
	Debounce       time.Duration
	MinInputLength int
}

// Defaults for Config.
const (
	DefaultDebounce       = 800 * time.Millisecond
	DefaultMinInputLength = 5
)

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MinInputLength <= 0 {
		c.MinInputLength = DefaultMinInputLength
	}
	return c
}

// StagedImage is an image selected for extraction but not yet committed.
type StagedImage struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Preview is the pending, never-persisted extraction shown for confirmation.
type Preview struct {
	ExtractedAt time.Time           `json:"extractedAt"`
	Image       *StagedImage        `json:"image,omitempty"`
	Record      model.PartialRecord `json:"record"`
	RawInput    string              `json:"rawInput"`
	Model       string              `json:"model"`
	Source      model.Source        `json:"source"`
}

// Field renders one preview field for display, using the unknown marker for
// unresolved values.
func (p Preview) Field(name string) string {
	switch name {
	case "amount":
		return p.Record.AmountText()
	case "category":
		return p.Record.CategoryText()
	case "date":
		return p.Record.DateText()
	case "merchant":
		return p.Record.MerchantText()
	case "description":
		return p.Record.DescriptionText()
	}
	return model.UnknownMarker
}

// Overrides are user-supplied values that win over extracted ones at confirm.
type Overrides struct {
	Amount      *float64        `json:"amount,omitempty"`
	Currency    *string         `json:"currency,omitempty"`
	Merchant    *string         `json:"merchant,omitempty"`
	Category    *model.Category `json:"category,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsRecurring *bool           `json:"isRecurring,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// Stats counts surface activity.
type Stats struct {
	Extractions int `json:"extractions"`
	Stale       int `json:"stale"`
	Commits     int `json:"commits"`
}

// Snapshot is a consistent copy of a surface's state.
type Snapshot struct {
	Preview    *Preview `json:"preview,omitempty"`
	Surface    string   `json:"surface"`
	Input      string   `json:"input"`
	LastError  string   `json:"lastError,omitempty"`
	Generation uint64   `json:"generation"`
	Stats      Stats    `json:"stats"`
	State      State    `json:"state"`
	HasImage   bool     `json:"hasImage"`
	Debouncing bool     `json:"debouncing"`
}
