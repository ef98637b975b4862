package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette for the TUI. Colors are ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	Banner     lipgloss.Color
	Error      lipgloss.Color
	Success    lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme matches the label's dodger blue banner.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),
	Accent:     lipgloss.Color("33"),
	Banner:     lipgloss.Color("33"),
	Error:      lipgloss.Color("203"),
	Success:    lipgloss.Color("78"),
	Border:     lipgloss.Color("240"),
}

type styles struct {
	banner      lipgloss.Style
	heading     lipgloss.Style
	label       lipgloss.Style
	focused     lipgloss.Style
	value       lipgloss.Style
	faint       lipgloss.Style
	errorText   lipgloss.Style
	successText lipgloss.Style
	modal       lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(theme.Banner).
			Padding(0, 2),
		heading:     lipgloss.NewStyle().Bold(true).Foreground(theme.NormalText),
		label:       lipgloss.NewStyle().Width(14).Foreground(theme.FaintText),
		focused:     lipgloss.NewStyle().Width(14).Bold(true).Foreground(theme.Accent),
		value:       lipgloss.NewStyle().Foreground(theme.NormalText),
		faint:       lipgloss.NewStyle().Foreground(theme.FaintText),
		errorText:   lipgloss.NewStyle().Foreground(theme.Error),
		successText: lipgloss.NewStyle().Foreground(theme.Success),
		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}
