package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Tab titles. Each export owns these tabs and rewrites them completely.
const (
	SummaryTab      = "Summary"
	CategoriesTab   = "Categories"
	TransactionsTab = "Transactions"
)

// ReportWriter publishes a spending report.
type ReportWriter interface {
	Write(ctx context.Context, report Report) (string, error)
}

// tab is one worksheet's worth of rows. moneyCols are zero-based column
// indexes that get a currency number format.
type tab struct {
	title     string
	rows      [][]any
	moneyCols []int64
}

// Writer publishes reports to a Google Sheets spreadsheet.
type Writer struct {
	api    *sheets.Service
	logger *slog.Logger
	cfg    Config
}

// NewWriter authenticates against Google and returns a Writer.
func NewWriter(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	api, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return newWriterWithService(api, cfg, logger), nil
}

func newWriterWithService(api *sheets.Service, cfg Config, logger *slog.Logger) *Writer {
	return &Writer{api: api, cfg: cfg, logger: logger}
}

func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	if cfg.AuthMethod() == AuthServiceAccount {
		key, err := os.ReadFile(cfg.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account key: %w", err)
		}
		jwt, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account key: %w", err)
		}
		return jwt.TokenSource(ctx), nil
	}

	oc := OAuth2Config{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	return oc.oauth().TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}), nil
}

// Write rewrites the report tabs and returns the spreadsheet ID. Tabs that
// are missing from an existing spreadsheet are added first.
func (w *Writer) Write(ctx context.Context, report Report) (string, error) {
	tabs := layout(report)
	w.logger.Info("Exporting report",
		"transactions", len(report.Transactions),
		"period", formatRange(report.DateRange))

	id, sheetIDs, err := w.prepare(ctx, tabs)
	if err != nil {
		return "", err
	}

	retry := service.RetryOptions{
		MaxAttempts:  w.cfg.RetryAttempts,
		InitialDelay: w.cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if err := common.WithRetry(ctx, func() error { return w.replaceValues(ctx, id, tabs) }, retry); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.cfg.EnableFormatting {
		requests := formatRequests(tabs, sheetIDs)
		err := common.WithRetry(ctx, func() error {
			_, err := w.api.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
			return err
		}, retry)
		if err != nil {
			w.logger.Warn("Report written without formatting", "error", err)
		}
	}

	w.logger.Info("Report exported", "spreadsheet_id", id)
	return id, nil
}

// prepare resolves the target spreadsheet and the sheet ID of every tab.
func (w *Writer) prepare(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	if w.cfg.SpreadsheetID == "" {
		return w.create(ctx, tabs)
	}

	existing, err := w.api.Spreadsheets.Get(w.cfg.SpreadsheetID).
		Fields("spreadsheetId", "sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.cfg.SpreadsheetID, err)
	}
	ids := sheetIDsOf(existing.Sheets)

	var add []*sheets.Request
	for _, t := range tabs {
		if _, ok := ids[t.title]; !ok {
			add = append(add, &sheets.Request{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: t.title},
			}})
		}
	}
	if len(add) == 0 {
		return w.cfg.SpreadsheetID, ids, nil
	}

	resp, err := w.api.Spreadsheets.BatchUpdate(w.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("failed to add report tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	w.logger.Debug("Added report tabs", "count", len(add))
	return w.cfg.SpreadsheetID, ids, nil
}

func (w *Writer) create(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: w.cfg.SpreadsheetName, TimeZone: w.cfg.TimeZone},
	}
	for _, t := range tabs {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t.title}})
	}

	created, err := w.api.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}
	w.logger.Info("Created spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, sheetIDsOf(created.Sheets), nil
}

func sheetIDsOf(list []*sheets.Sheet) map[string]int64 {
	ids := make(map[string]int64, len(list))
	for _, s := range list {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return ids
}

// replaceValues clears every report tab in one call and then uploads the
// rows, at most BatchSize rows per request.
func (w *Writer) replaceValues(ctx context.Context, id string, tabs []tab) error {
	wipe := &sheets.BatchClearValuesRequest{}
	for _, t := range tabs {
		wipe.Ranges = append(wipe.Ranges, a1(t.title, 1)+":Z")
	}
	if _, err := w.api.Spreadsheets.Values.BatchClear(id, wipe).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear report tabs: %w", err)
	}

	for _, t := range tabs {
		for start := 0; start < len(t.rows); start += w.cfg.BatchSize {
			end := min(start+w.cfg.BatchSize, len(t.rows))
			update := &sheets.BatchUpdateValuesRequest{
				ValueInputOption: "USER_ENTERED",
				Data:             []*sheets.ValueRange{{Range: a1(t.title, start+1), Values: t.rows[start:end]}},
			}
			if _, err := w.api.Spreadsheets.Values.BatchUpdate(id, update).Context(ctx).Do(); err != nil {
				return fmt.Errorf("failed to write %s rows %d-%d: %w", t.title, start+1, end, err)
			}
			w.logger.Debug("Wrote rows", "tab", t.title, "from", start+1, "to", end)
		}
	}
	return nil
}

// a1 addresses column A of row in the named tab.
func a1(title string, row int) string {
	return fmt.Sprintf("'%s'!A%d", title, row)
}

// layout turns a report into the three tabs. The first row of every tab is
// its header.
func layout(report Report) []tab {
	summary := tab{
		title: SummaryTab,
		rows: [][]any{
			{"Spending Report", formatRange(report.DateRange)},
			{"Owner", report.Owner},
			{"Total Spent", report.TotalSpent.InexactFloat64()},
			{"Transactions", len(report.Transactions)},
			{},
			{"Date", "Spent"},
		},
		moneyCols: []int64{1},
	}
	for _, d := range report.Trend {
		summary.rows = append(summary.rows, []any{d.Date, d.Amount.InexactFloat64()})
	}

	categories := tab{
		title:     CategoriesTab,
		rows:      [][]any{{"Category", "Transactions", "Spent", "Share"}},
		moneyCols: []int64{2},
	}
	for _, c := range report.Categories {
		categories.rows = append(categories.rows, []any{
			c.Category, c.Count, c.Amount.InexactFloat64(), c.Percentage.StringFixed(2) + "%",
		})
	}

	txns := tab{
		title:     TransactionsTab,
		rows:      [][]any{{"Date", "Merchant", "Amount", "Currency", "Category", "Description", "Source"}},
		moneyCols: []int64{2},
	}
	for _, t := range report.Transactions {
		txns.rows = append(txns.rows, []any{
			t.Date.Format(model.DateLayout), t.Merchant, t.Amount.InexactFloat64(),
			t.Currency, t.Category, t.Description, t.Source,
		})
	}

	return []tab{summary, categories, txns}
}

func formatRange(r DateRange) string {
	if r.Start.IsZero() {
		return "no transactions"
	}
	return r.Start.Format("Jan 2, 2006") + " - " + r.End.Format("Jan 2, 2006")
}

// formatRequests bolds and freezes each header row, applies the money format
// and sizes the columns. Tabs without a known sheet ID are left alone.
func formatRequests(tabs []tab, sheetIDs map[string]int64) []*sheets.Request {
	var reqs []*sheets.Request
	for _, t := range tabs {
		sid, ok := sheetIDs[t.title]
		if !ok {
			continue
		}
		rows := int64(len(t.rows))

		reqs = append(reqs,
			&sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: sid, StartRowIndex: 0, EndRowIndex: 1},
				Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}}},
				Fields: "userEnteredFormat.textFormat.bold",
			}},
			&sheets.Request{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{SheetId: sid, GridProperties: &sheets.GridProperties{FrozenRowCount: 1}},
				Fields:     "gridProperties.frozenRowCount",
			}},
		)
		for _, col := range t.moneyCols {
			if rows < 2 {
				break
			}
			reqs = append(reqs, &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sid, StartRowIndex: 1, EndRowIndex: rows, StartColumnIndex: col, EndColumnIndex: col + 1},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"},
				}},
				Fields: "userEnteredFormat.numberFormat",
			}})
		}
		reqs = append(reqs, &sheets.Request{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{SheetId: sid, Dimension: "COLUMNS", StartIndex: 0, EndIndex: int64(len(t.rows[0]))},
		}})
	}
	return reqs
}
