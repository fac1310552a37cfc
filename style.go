package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).
			Bold(true)

	paragraphStyle = lipgloss.NewStyle().
			Margin(1, 0, 0, 2)
)

// keyword renders a highlighted word for help text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph wraps help text to the terminal width, capped at 80 columns.
func paragraph(s string) string {
	return paragraphStyle.Width(maxWidth()).Render(s)
}

func maxWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 4 && w < 84 {
		return w - 4
	}
	return 80
}
