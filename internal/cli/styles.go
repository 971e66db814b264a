package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title     lipgloss.Color
	Highlight lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:     lipgloss.Color("#5FAFD7"), // light blue
	Highlight: lipgloss.Color("#FFD700"), // gold
	Success:   lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) highlightStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Highlight).Bold(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}
