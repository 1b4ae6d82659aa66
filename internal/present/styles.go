// Package present renders API answers for the terminal and as GeoJSON maps.
package present

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/elofiber/viabilidade-ftth/internal/viability"
)

// Theme is the colour palette of the CLI.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Border  lipgloss.Color
}

// DefaultTheme reuses the rating colours so the table matches the map.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"),
		Muted:   lipgloss.Color("#6C7086"),
		Success: lipgloss.Color(viability.High.Color()),
		Warning: lipgloss.Color(viability.Medium.Color()),
		Error:   lipgloss.Color(viability.Low.Color()),
		Border:  lipgloss.Color("#45475A"),
	}
}

// Styles holds the pre-built lipgloss styles.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
}

// NewStyles builds styles from theme; nil means DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),
		Label: lipgloss.NewStyle().
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Success: lipgloss.NewStyle().
			Foreground(theme.Success),
		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),
		Error: lipgloss.NewStyle().
			Foreground(theme.Error),
		Header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(theme.Primary),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// Level returns the style for a rating level.
func (s *Styles) Level(l viability.Level) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(l.Color()))
}
