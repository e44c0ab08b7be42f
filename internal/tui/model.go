// Package tui is the interactive terminal screen for adding transactions in
// natural language.
package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// noCategory marks that the extracted category is used as is.
const noCategory = -1

// Model holds the intake screen state.
type Model struct {
	ctx      context.Context
	err      error
	surface  *intake.Surface
	updates  *Updates
	theme    themes.Theme
	status   string
	saved    []model.Transaction
	keymap   KeyMap
	help     help.Model
	input    textinput.Model
	spinner  spinner.Model
	snap     intake.Snapshot
	category int
	width    int
	quitting bool
}

// New creates the intake screen for surface. updates must be the feed
// registered on the surface's pipeline.
func New(ctx context.Context, surface *intake.Surface, updates *Updates, opts ...Option) Model {
	cfg := newSettings(opts)

	input := textinput.New()
	input.Placeholder = "Lunch at Luigi's $18.50 yesterday"
	input.Prompt = "› "
	input.CharLimit = 500
	input.Width = inputWidth(cfg.width)
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = cfg.theme.StatusInfo

	h := help.New()
	h.Width = cfg.width
	h.ShowAll = cfg.fullHelp

	return Model{
		ctx:      ctx,
		surface:  surface,
		updates:  updates,
		theme:    cfg.theme,
		keymap:   DefaultKeyMap(),
		help:     h,
		input:    input,
		spinner:  sp,
		snap:     surface.Snapshot(),
		category: noCategory,
		width:    cfg.width,
	}
}

func inputWidth(width int) int {
	return max(20, width-6)
}

// Saved returns the transactions committed during the session.
func (m Model) Saved() []model.Transaction {
	return m.saved
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.updates.wait())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = inputWidth(msg.Width)
		m.help.Width = msg.Width
		return m, nil

	case surfaceChangedMsg:
		m.snap = m.surface.Snapshot()
		return m, m.updates.wait()

	case committedMsg:
		m.snap = m.surface.Snapshot()
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.saved = append(m.saved, msg.txn)
		m.err = nil
		m.category = noCategory
		m.input.Reset()
		m.status = fmt.Sprintf("Saved %.2f %s at %s (%s)",
			msg.txn.Amount, msg.txn.Currency, msg.txn.Merchant, msg.txn.Category)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Cancel):
		if !m.surface.Cancel() {
			m.quitting = true
			return m, tea.Quit
		}
		m.snap = m.surface.Snapshot()
		m.category = noCategory
		m.err = nil
		m.status = "Preview discarded"
		return m, nil

	case key.Matches(msg, m.keymap.Confirm):
		if m.snap.State != intake.StatePreviewReady {
			m.status = "Nothing to save yet"
			return m, nil
		}
		m.status = ""
		return m, m.confirm()

	case key.Matches(msg, m.keymap.Extract):
		m.surface.Flush()
		m.snap = m.surface.Snapshot()
		return m, nil

	case key.Matches(msg, m.keymap.NextCategory):
		m.category++
		if m.category >= len(model.ExtractableCategories) {
			m.category = noCategory
		}
		return m, nil

	case key.Matches(msg, m.keymap.PrevCategory):
		m.category--
		if m.category < noCategory {
			m.category = len(model.ExtractableCategories) - 1
		}
		return m, nil

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		if err := m.surface.SetText(value); err != nil {
			m.err = err
		}
		m.snap = m.surface.Snapshot()
		m.status = ""
	}
	return m, cmd
}

// overrides returns what the user chose on screen.
func (m Model) overrides() intake.Overrides {
	var ov intake.Overrides
	if m.category != noCategory {
		c := model.ExtractableCategories[m.category]
		ov.Category = &c
	}
	return ov
}

func (m Model) confirm() tea.Cmd {
	ctx, surface, ov := m.ctx, m.surface, m.overrides()
	return func() tea.Msg {
		txn, err := surface.Confirm(ctx, ov)
		return committedMsg{txn: txn, err: err}
	}
}
