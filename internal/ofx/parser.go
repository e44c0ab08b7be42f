// Package ofx reads OFX/QFX bank statements and imports their debits as
// ledger transactions.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An opening tag alone on its line with its closing bracket missing.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// merchantPrefixes are card-processor noise in front of the payee.
var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// Entry is one statement line. Amount is always positive; Debit tells the
// direction.
type Entry struct {
	Date      time.Time
	FITID     string
	AccountID string
	Name      string
	Merchant  string
	Memo      string
	Type      string
	Currency  string
	Amount    float64
	Debit     bool
}

// Statement is everything read from one file.
type Statement struct {
	Entries  []Entry
	Accounts []string
}

// Debits returns only the outgoing entries.
func (s Statement) Debits() []Entry {
	debits := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Debit {
			debits = append(debits, e)
		}
	}
	return debits
}

// Parser reads OFX/QFX files.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Parse reads a bank or credit card statement.
func (p *Parser) Parse(reader io.Reader) (Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return Statement{}, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return Statement{}, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var stmt Statement
	seen := make(map[string]bool)
	addAccount := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			stmt.Accounts = append(stmt.Accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			accountID := string(bank.BankAcctFrom.AcctID)
			addAccount(accountID)
			stmt.Entries = append(stmt.Entries, p.convertList(bank.BankTranList, accountID, currencyCode(bank.CurDef))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if cc, ok := msg.(*ofxgo.CCStatementResponse); ok {
			accountID := string(cc.CCAcctFrom.AcctID)
			addAccount(accountID)
			stmt.Entries = append(stmt.Entries, p.convertList(cc.BankTranList, accountID, currencyCode(cc.CurDef))...)
		}
	}

	p.logger.Info("Parsed OFX file",
		"entries", len(stmt.Entries),
		"accounts", len(stmt.Accounts))

	return stmt, nil
}

func currencyCode(cur ofxgo.CurrSymbol) string {
	code := strings.ToUpper(strings.TrimSpace(cur.String()))
	if len(code) != 3 || code == "XXX" {
		return ""
	}
	return code
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID, currency string) []Entry {
	if list == nil {
		return nil
	}

	entries := make([]Entry, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		entries = append(entries, convertTransaction(tx, accountID, currency))
	}
	return entries
}

func convertTransaction(tx ofxgo.Transaction, accountID, currency string) Entry {
	// OFX uses negative amounts for debits.
	amount, _ := tx.TrnAmt.Float64()

	y, m, d := tx.DtPosted.Date()
	return Entry{
		FITID:     string(tx.FiTID),
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		AccountID: accountID,
		Name:      strings.TrimSpace(string(tx.Name)),
		Merchant:  extractMerchantName(tx),
		Memo:      strings.TrimSpace(string(tx.Memo)),
		Type:      tx.TrnType.String(),
		Currency:  currency,
		Amount:    abs(amount),
		Debit:     amount < 0,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is cleaner than NAME when present.
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
