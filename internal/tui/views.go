package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/tui/themes"
	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.theme.Title.Render("Spice Ledger"),
		m.theme.Subtitle.Render("Describe a purchase, or paste a receipt line."),
		m.input.View(),
		m.renderStatus(),
	}
	if preview := m.renderPreview(); preview != "" {
		sections = append(sections, preview)
	}
	if msg := m.renderMessages(); msg != "" {
		sections = append(sections, msg)
	}
	sections = append(sections, m.theme.Help.Render(m.help.View(m.keymap)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatus renders one line describing where the surface is.
func (m Model) renderStatus() string {
	switch {
	case m.snap.State == intake.StateExtracting:
		return m.spinner.View() + m.theme.StatusInfo.Render("Reading your entry...")
	case m.snap.State == intake.StateCommitting:
		return m.spinner.View() + m.theme.StatusInfo.Render("Saving...")
	case m.snap.State == intake.StatePreviewReady:
		return m.theme.StatusInfo.Render("Preview ready. Ctrl+S saves, Esc discards.")
	case m.snap.Debouncing:
		return m.theme.StatusPending.Render("Waiting for you to finish typing...")
	default:
		return m.theme.StatusPending.Render("Idle")
	}
}

// renderPreview renders the pending record, or nothing without one.
func (m Model) renderPreview() string {
	if m.snap.Preview == nil {
		return ""
	}
	p := m.snap.Preview

	category, icon := p.Field("category"), model.CategoryOther
	if p.Record.Category != nil {
		icon = *p.Record.Category
	}
	if c, ok := m.overrideCategory(); ok {
		category, icon = string(c)+" (changed)", c
	}

	rows := []string{
		m.field("Amount", p.Field("amount")),
		m.field("Category", m.theme.CategoryIcon.Render(themes.GetCategoryIcon(icon))+category),
		m.field("Date", p.Field("date")),
		m.field("Merchant", p.Field("merchant")),
		m.field("Description", p.Field("description")),
	}
	if p.Record.IsEmpty() {
		rows = append(rows, "", m.theme.StatusPending.Render("Nothing could be read from this entry."))
	}

	width := max(30, m.width-4)
	return m.theme.RoundedBox.Width(width).Render(strings.Join(rows, "\n"))
}

func (m Model) field(label, value string) string {
	style := m.theme.Normal
	if value == model.UnknownMarker {
		style = m.theme.Unknown
	}
	return m.theme.Label.Render(label) + style.Render(value)
}

func (m Model) overrideCategory() (model.Category, bool) {
	if m.category == noCategory {
		return "", false
	}
	return model.ExtractableCategories[m.category], true
}

// renderMessages renders errors, the last outcome and the session tally.
func (m Model) renderMessages() string {
	var lines []string
	if m.snap.LastError != "" {
		lines = append(lines, m.theme.StatusError.Render("Error: "+m.snap.LastError))
	} else if m.err != nil {
		lines = append(lines, m.theme.StatusError.Render("Error: "+m.err.Error()))
	}
	if m.status != "" {
		lines = append(lines, m.theme.StatusSuccess.Render(m.status))
	}
	if n := len(m.saved); n > 0 {
		lines = append(lines, m.theme.Subtitle.Render(fmt.Sprintf("%d saved this session", n)))
	}
	return strings.Join(lines, "\n")
}
