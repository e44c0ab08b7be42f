package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the intake screen until the user quits and returns the
// transactions saved meanwhile.
func Run(ctx context.Context, surface *intake.Surface, updates *Updates, opts ...Option) ([]model.Transaction, error) {
	defer updates.Close()

	program := tea.NewProgram(New(ctx, surface, updates, opts...), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("intake screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return m.Saved(), nil
}
