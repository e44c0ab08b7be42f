package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the intake screen shortcuts. Printable keys belong to the
// text input, so every action sits on a control or navigation key.
type KeyMap struct {
	Extract      key.Binding
	Confirm      key.Binding
	Cancel       key.Binding
	NextCategory key.Binding
	PrevCategory key.Binding
	ToggleHelp   key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Extract: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "extract now"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("Ctrl+S", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "discard preview / quit"),
		),
		NextCategory: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next category"),
		),
		PrevCategory: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("Shift+Tab", "previous category"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Extract, k.Confirm, k.Cancel, k.ToggleHelp}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Extract, k.Confirm, k.Cancel},
		{k.NextCategory, k.PrevCategory},
		{k.ToggleHelp, k.Quit},
	}
}
