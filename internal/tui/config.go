package tui

import "github.com/Veraticus/spice-ledger/internal/tui/themes"

// settings are the knobs Run and New accept through Options.
type settings struct {
	theme    themes.Theme
	width    int
	fullHelp bool
}

type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{theme: themes.Default, width: 80}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithTheme(theme themes.Theme) Option { return func(s *settings) { s.theme = theme } }

// WithWidth sets the width used until the terminal reports its size.
func WithWidth(width int) Option { return func(s *settings) { s.width = width } }

// WithFullHelp lists every key binding from the start.
func WithFullHelp(enabled bool) Option { return func(s *settings) { s.fullHelp = enabled } }
