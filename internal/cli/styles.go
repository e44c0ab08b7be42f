// Package cli provides styled terminal output for the spice commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette shared by every command.
var (
	chili   = lipgloss.Color("#FF6B6B")
	mint    = lipgloss.Color("#4ECDC4")
	saffron = lipgloss.Color("#FFE66D")
	sage    = lipgloss.Color("#95E1D3")
	ash     = lipgloss.Color("#666666")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(chili)
	subtleStyle = lipgloss.NewStyle().Foreground(ash)
	labelStyle  = lipgloss.NewStyle().Width(13).Foreground(ash)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 2)
)

const (
	SpiceIcon = "🌶️"
	ChartIcon = "📊"
)

func status(color lipgloss.Color, icon, msg string) string {
	return lipgloss.NewStyle().Foreground(color).Render(icon + " " + msg)
}

func FormatSuccess(msg string) string { return status(mint, "✓", msg) }
func FormatError(msg string) string { return status(chili, "✗", msg) }
func FormatWarning(msg string) string { return status(saffron, "⚠️", msg) }
func FormatInfo(msg string) string { return status(sage, "ℹ️", msg) }

// FormatTitle renders a section heading followed by a blank line.
func FormatTitle(title string) string {
	return titleStyle.MarginBottom(1).Render(SpiceIcon + " " + title)
}

// FormatPrompt renders a question that expects typed input after it.
func FormatPrompt(prompt string) string {
	return titleStyle.Render(prompt + " → ")
}

// RenderBox frames content under a bold title.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}

// RenderPreview renders a pending extraction the way it will be saved, with
// unresolved fields marked.
func RenderPreview(p intake.Preview) string {
	rows := make([]string, 0, 6)
	for _, f := range []struct{ label, name string }{
		{"Amount", "amount"},
		{"Category", "category"},
		{"Date", "date"},
		{"Merchant", "merchant"},
		{"Description", "description"},
	} {
		value := p.Field(f.name)
		if value == model.UnknownMarker {
			value = subtleStyle.Render(value)
		}
		rows = append(rows, labelStyle.Render(f.label)+value)
	}
	if p.Record.Confidence != nil {
		rows = append(rows, labelStyle.Render("Confidence")+fmt.Sprintf("%.0f%%", *p.Record.Confidence*100))
	}
	return RenderBox("Preview", strings.Join(rows, "\n"))
}

// FormatTransaction renders a stored transaction on one line.
func FormatTransaction(txn model.Transaction) string {
	line := fmt.Sprintf("%s  %10.2f %s  %-13s %s",
		txn.DayKey(), txn.Amount, txn.Currency, txn.Category, txn.Merchant)
	if txn.Description != "" && txn.Description != txn.Merchant {
		line += subtleStyle.Render("  " + txn.Description)
	}
	return strings.TrimRight(line, " ")
}
