package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lovebug/model"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// No backgrounds anywhere: the terminal's transparency shows through.
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)
)

// FormatFooter renders alternating keys and descriptions, descriptions in
// bold accent blue: FormatFooter("Enter", "Run", "Esc", "Close").
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}

// ConnectionIndicator renders the endpoint state shown in the title bar.
func ConnectionIndicator(state model.ConnectionState) string {
	switch state {
	case model.ConnectionConnected:
		return lipgloss.NewStyle().Foreground(successColor).Render("● 연결됨")
	case model.ConnectionDisconnected:
		return lipgloss.NewStyle().Foreground(dangerColor).Render("● 연결 끊김")
	default:
		return DimStyle.Render("○ 확인 중")
	}
}
