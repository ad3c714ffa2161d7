package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MaxWidth is the maximum width for styled output.
const MaxWidth = 80

// Colors.
var (
	Green  = lipgloss.Color("2")
	Red    = lipgloss.Color("1")
	Yellow = lipgloss.Color("3")
	Subtle = lipgloss.Color("8")
)

// DotState is the health shown by a status dot.
type DotState int

const (
	StateHealthy DotState = iota // green
	StateFault                   // red
	StateIdle                    // yellow
)

var sectionStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1).
	MarginBottom(1)

var titleStyle = lipgloss.NewStyle().Bold(true)

// Dot returns a colored ● for the given state.
func Dot(state DotState) string {
	switch state {
	case StateHealthy:
		return lipgloss.NewStyle().Foreground(Green).Render("●")
	case StateFault:
		return lipgloss.NewStyle().Foreground(Red).Render("●")
	case StateIdle:
		return lipgloss.NewStyle().Foreground(Yellow).Render("●")
	default:
		return "●"
	}
}

// Section renders content inside a bordered box with a bold title.
func Section(title, content string, width int) string {
	if width > MaxWidth {
		width = MaxWidth
	}
	contentWidth := max(width-4, 40)
	return sectionStyle.Width(contentWidth).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

// StepOK returns a green checkmark step line.
func StepOK(msg string) string {
	return lipgloss.NewStyle().Foreground(Green).Render("✔") + " " + msg
}

// Warn returns a yellow warning message (caller writes to stderr).
func Warn(msg string) string {
	return lipgloss.NewStyle().Foreground(Yellow).Render("⚠") + " " + msg
}

// Header renders a subtle-colored column header line.
func Header(format string, args ...any) string {
	return lipgloss.NewStyle().Foreground(Subtle).Render(fmt.Sprintf(format, args...))
}

// Row renders a two-column key-value row, with optional second pair.
func Row(k1, v1, k2, v2 string, width int) string {
	left := fmt.Sprintf("%-14s %s", k1+":", v1)
	if k2 == "" {
		return left
	}
	right := fmt.Sprintf("%s %s", k2+":", v2)
	gap := max(width/2-lipgloss.Width(left), 2)
	return left + strings.Repeat(" ", gap) + right
}
