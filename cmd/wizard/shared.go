package wizard

import (
	"github.com/charmbracelet/lipgloss"
)

// Common styles
var (
	titleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Bold(true)

	inputStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		Padding(0, 1).
		Width(50)

	inputFocusedStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FF79C6")).
		Padding(0, 1).
		Width(50)

	buttonStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("#7D56F4")).
		Foreground(lipgloss.Color("#FAFAFA")).
		Padding(0, 2).
		Margin(0, 1)

	buttonActiveStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("#FF79C6")).
		Foreground(lipgloss.Color("#FAFAFA")).
		Padding(0, 2).
		Margin(0, 1)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5555")).
		Bold(true)

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#50FA7B")).
		Bold(true)

	helpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6272A4"))
)

// Utility functions

// insertText inserts text at the specified position in a string
func insertText(text string, pos int, insert string) string {
	if pos < 0 {
		pos = 0
	}
	if pos > len(text) {
		pos = len(text)
	}
	return text[:pos] + insert + text[pos:]
}

// deleteCharAt deletes the character at the specified position
func deleteCharAt(text string, pos int) string {
	if pos < 0 || pos >= len(text) {
		return text
	}
	return text[:pos] + text[pos+1:]
}

// renderTextWithCursor renders text with a cursor indicator at the specified position
func renderTextWithCursor(text string, cursorPos int, showCursor bool) string {
	if !showCursor || cursorPos < 0 {
		return text
	}

	if cursorPos > len(text) {
		cursorPos = len(text)
	}

	if cursorPos == len(text) {
		return text + "│"
	}

	before := text[:cursorPos]
	atCursor := string(text[cursorPos])
	after := text[cursorPos+1:]

	highlightedChar := lipgloss.NewStyle().
		Background(lipgloss.Color("#FF79C6")).
		Foreground(lipgloss.Color("#FAFAFA")).
		Render(atCursor)

	return before + highlightedChar + after
}
