package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/eqpath/internal/econ"
)

// Theme holds the colors used for solver status.
type Theme struct {
	Name    string
	Accent  lipgloss.Color
	Line    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeNeon = Theme{
		Name:    "neon",
		Accent:  lipgloss.Color("#00ffff"),
		Line:    lipgloss.Color("#ff00ff"),
		Muted:   lipgloss.Color("#666666"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Accent:  lipgloss.Color("#ffffff"),
		Line:    lipgloss.Color("#0088ff"),
		Muted:   lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Accent:  lipgloss.Color("#00a8cc"),
		Line:    lipgloss.Color("#ffd700"),
		Muted:   lipgloss.Color("#4488aa"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	CurrentTheme = ThemeNeon

	Themes = []Theme{ThemeNeon, ThemeMinimal, ThemeOcean}
)

// GetTheme returns the named theme and whether it exists.
func GetTheme(name string) (Theme, bool) {
	for _, t := range Themes {
		if t.Name == name {
			return t, true
		}
	}
	return ThemeNeon, false
}

func SetTheme(name string) bool {
	t, ok := GetTheme(name)
	if ok {
		CurrentTheme = t
	}
	return ok
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// FlagStyle colors a solver flag. A horizon that ran out still carries a
// usable path, so it is a warning rather than an error.
func FlagStyle(f econ.Flag) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch f {
	case econ.Success:
		return s.Foreground(CurrentTheme.Success)
	case econ.HorizonExceeded, econ.NonConvergence:
		return s.Foreground(CurrentTheme.Warning)
	default:
		return s.Foreground(CurrentTheme.Error)
	}
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Error)
}
