// Package sheets exports the ledger to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSpreadsheetName is used when a new spreadsheet has to be created.
const DefaultSpreadsheetName = "Spice Ledger"

// AuthMethod names how the writer authenticates with Google.
type AuthMethod string

const (
	AuthNone           AuthMethod = ""
	AuthOAuth          AuthMethod = "oauth"
	AuthServiceAccount AuthMethod = "service_account"
)

var (
	ErrNoCredentials          = errors.New("no Google credentials configured")
	ErrConflictingCredentials = errors.New("both OAuth and a service account are configured")
)

// Config controls where and how reports are exported.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string // empty creates a new spreadsheet on every export
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int // rows per values request
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  DefaultSpreadsheetName,
		TimeZone:         "UTC",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		EnableFormatting: true,
	}
}

// AuthMethod reports the configured credential kind. A refresh token without
// its client ID and secret does not count as OAuth.
func (c Config) AuthMethod() AuthMethod {
	switch {
	case c.ServiceAccountPath != "":
		return AuthServiceAccount
	case c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "":
		return AuthOAuth
	}
	return AuthNone
}

// Validate checks the credentials and the tuning knobs.
func (c Config) Validate() error {
	oauth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	switch {
	case oauth && c.ServiceAccountPath != "":
		return ErrConflictingCredentials
	case c.AuthMethod() == AuthNone:
		return ErrNoCredentials
	case c.BatchSize < 1:
		return fmt.Errorf("batch size %d: must be at least 1", c.BatchSize)
	case c.RetryAttempts < 0 || c.RetryDelay < 0:
		return errors.New("retry settings cannot be negative")
	}
	return nil
}
