// Package themes holds the color schemes of the entry screen.
package themes

import (
	"sort"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette names the colors a Theme is derived from.
type Palette struct {
	Accent  string
	Text    string
	Dim     string
	Faint   string
	Frame   string
	Info    string
	Danger  string
	Success string
}

// Theme is the set of styles the entry screen renders with.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Label         lipgloss.Style
	Unknown       lipgloss.Style
	Help          lipgloss.Style
	RoundedBox    lipgloss.Style
	StatusPending lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	CategoryIcon  lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
}

// New derives every style from p.
func New(p Palette) Theme {
	fg := func(hex string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)) }

	return Theme{
		Primary: lipgloss.Color(p.Accent),
		Muted:   lipgloss.Color(p.Faint),
		Border:  lipgloss.Color(p.Frame),

		Title:      fg(p.Accent).Bold(true).MarginBottom(1),
		Subtitle:   fg(p.Dim),
		Normal:     fg(p.Text),
		Bold:       fg(p.Text).Bold(true),
		Label:      fg(p.Dim).Width(13),
		Unknown:    fg(p.Faint).Italic(true),
		Help:       fg(p.Faint).MarginTop(1),
		RoundedBox: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Frame)).Padding(0, 1),

		StatusPending: fg(p.Faint).Italic(true),
		StatusInfo:    fg(p.Info).Bold(true),
		StatusError:   fg(p.Danger).Bold(true),
		StatusSuccess: fg(p.Success).Bold(true),

		CategoryIcon: lipgloss.NewStyle().Width(3).Align(lipgloss.Center),
	}
}

var (
	Default = New(Palette{
		Accent: "#7c3aed", Text: "#fafafa", Dim: "#a3a3a3", Faint: "#737373",
		Frame: "#404040", Info: "#3b82f6", Danger: "#ef4444", Success: "#10b981",
	})
	CatppuccinMocha = New(Palette{
		Accent: "#cba6f7", Text: "#cdd6f4", Dim: "#a6adc8", Faint: "#6c7086",
		Frame: "#45475a", Info: "#89dceb", Danger: "#f38ba8", Success: "#a6e3a1",
	})
	GruvboxDark = New(Palette{
		Accent: "#fe8019", Text: "#ebdbb2", Dim: "#bdae93", Faint: "#928374",
		Frame: "#504945", Info: "#83a598", Danger: "#fb4934", Success: "#b8bb26",
	})
)

var byName = map[string]Theme{
	"default":          Default,
	"catppuccin-mocha": CatppuccinMocha,
	"gruvbox-dark":     GruvboxDark,
}

// GetTheme looks a theme up by its config name, falling back to Default.
func GetTheme(name string) Theme {
	if t, ok := byName[name]; ok {
		return t
	}
	return Default
}

// Names lists the accepted theme names in order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var categoryIcons = map[model.Category]string{
	model.CategoryFood:          "🍕",
	model.CategoryTransport:     "🚗",
	model.CategoryUtilities:     "💡",
	model.CategoryEntertainment: "🎬",
	model.CategoryHealth:        "💊",
	model.CategoryShopping:      "🛍️",
	model.CategoryOther:         "📦",
	model.CategoryUncategorized: "❔",
}

// GetCategoryIcon returns the emoji shown next to a category. Unknown
// categories share the Other icon.
func GetCategoryIcon(category model.Category) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return categoryIcons[model.CategoryOther]
}
