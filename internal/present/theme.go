package present

import "github.com/charmbracelet/lipgloss"

// Theme defines colors and icons for terminal output.
type Theme struct {
	Name     string
	Location lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Selected lipgloss.Style
	Icons    ThemeIcons
}

// ThemeIcons defines the icon set for a theme.
type ThemeIcons struct {
	Pass    string
	Fail    string
	Warn    string
	Cursor  string
	Spinner lipgloss.TerminalColor
}

// DefaultTheme returns a vibrant color theme.
func DefaultTheme() Theme {
	return Theme{
		Name:     "default",
		Location: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),  // blue
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),  // green
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")), // gray
		Bold:     lipgloss.NewStyle().Bold(true),
		Selected: lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("236")),
		Icons: ThemeIcons{
			Pass:    "✓",
			Fail:    "✗",
			Warn:    "⚠",
			Cursor:  "▶",
			Spinner: lipgloss.Color("39"),
		},
	}
}

// OrcaTheme returns a muted, professional theme.
func OrcaTheme() Theme {
	return Theme{
		Name:     "orca",
		Location: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),  // pale blue
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("108")), // sage green
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("179")), // muted gold
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("167")), // muted red
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")), // lighter gray
		Bold:     lipgloss.NewStyle().Bold(true),
		Selected: lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("237")),
		Icons: ThemeIcons{
			Pass:    "✓",
			Fail:    "✗",
			Warn:    "!",
			Cursor:  "›",
			Spinner: lipgloss.Color("75"),
		},
	}
}

// MonoTheme returns a monochrome theme (no colors).
func MonoTheme() Theme {
	return Theme{
		Name:     "mono",
		Location: lipgloss.NewStyle(),
		Success:  lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Muted:    lipgloss.NewStyle(),
		Bold:     lipgloss.NewStyle().Bold(true),
		Selected: lipgloss.NewStyle().Reverse(true),
		Icons: ThemeIcons{
			Pass:   "+",
			Fail:   "x",
			Warn:   "!",
			Cursor: ">",
		},
	}
}

// ThemeByName returns a theme by name, defaulting to DefaultTheme. noColor
// always yields MonoTheme.
func ThemeByName(name string, noColor bool) Theme {
	if noColor {
		return MonoTheme()
	}
	switch name {
	case "orca":
		return OrcaTheme()
	case "mono":
		return MonoTheme()
	default:
		return DefaultTheme()
	}
}
