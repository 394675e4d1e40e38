// Package tui provides the interactive record browser behind the
// --tui flag. It is read-only and renders the same records the table
// and JSON formats do.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	accentColor = lipgloss.Color("#2DD4BF") // Teal
	mutedColor  = lipgloss.Color("#6B7280") // Gray
	brightColor = lipgloss.Color("#F9FAFB") // Near white
)

// Styles for browser components.
var (
	// TitleStyle for the view header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	// SelectedStyle for the record under the cursor.
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// RowStyle for unselected records.
	RowStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// LabelStyle for detail field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for detail field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(brightColor)

	// BoxStyle for the detail pane.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
