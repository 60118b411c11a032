package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out is where user-facing lines go
var Out io.Writer = os.Stdout

var (
	ColorCyan   = lipgloss.Color("14")
	ColorGreen  = lipgloss.Color("10")
	ColorYellow = lipgloss.Color("220")
	ColorRed    = lipgloss.Color("204")
	ColorBlue   = lipgloss.Color("12")
	ColorDim    = lipgloss.Color("240")
)

var (
	StyleNoun    = lipgloss.NewStyle().Foreground(ColorCyan)
	StyleDim     = lipgloss.NewStyle().Faint(true)
	StyleHeader  = lipgloss.NewStyle().Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(ColorGreen)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	styleInfo    = lipgloss.NewStyle().Foreground(ColorBlue)
	styleWarning = lipgloss.NewStyle().Foreground(ColorYellow)
	styleMatch   = lipgloss.NewStyle().Bold(true).Foreground(ColorYellow)
)

// Success prints a success message with checkmark
func Success(message string) {
	fmt.Fprintf(Out, "%s %s\n", styleSuccess.Render("✓"), message)
}

// Error prints an error message
func Error(message string) {
	fmt.Fprintf(Out, "%s %s\n", styleError.Render("✗"), message)
}

// Info prints an info message
func Info(message string) {
	fmt.Fprintf(Out, "%s %s\n", styleInfo.Render("ℹ"), message)
}

// Warning prints a warning message
func Warning(message string) {
	fmt.Fprintf(Out, "%s %s\n", styleWarning.Render("⚠"), message)
}

// Section prints a bold header followed by a rule
func Section(title string) {
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, StyleHeader.Render(title))
	fmt.Fprintln(Out, StyleDim.Render(strings.Repeat("─", 40)))
}

// KeyValue prints an aligned "key: value" line
func KeyValue(key, value string) {
	fmt.Fprintf(Out, "  %-18s %s\n", key+":", value)
}

// Noun highlights an identifier such as a course id or path
func Noun(s string) string {
	return StyleNoun.Render(s)
}

// Dim renders secondary text
func Dim(s string) string {
	return StyleDim.Render(s)
}

// Highlight marks a search hit
func Highlight(s string) string {
	return styleMatch.Render(s)
}

// Table renders rows with aligned columns. The first row is the header.
func Table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	for r, row := range rows {
		var b strings.Builder
		b.WriteString("  ")
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if r == 0 {
				cell = StyleHeader.Render(cell)
			}
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		fmt.Fprintln(Out, b.String())
	}
}
