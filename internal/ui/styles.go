// Package ui holds the terminal styles shared by the CLI and the text
// renderer of the board.
package ui

import "github.com/charmbracelet/lipgloss"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = "74"  // blue
	colorCmd     = "250" // light gray
	colorMuted   = "245" // medium gray
	colorSuccess = "114" // green
	colorDanger  = "204" // red
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent))
	cmdStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorCmd))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDanger))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

var noColor bool

func render(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(cmdStyle, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return render(successStyle, s) }

// RenderDanger returns s in red.
func RenderDanger(s string) string { return render(dangerStyle, s) }

// RenderBold returns s in bold.
func RenderBold(s string) string { return render(boldStyle, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
