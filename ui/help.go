package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	title := green.Render("Lovebug - Keyboard Shortcuts")

	blue := lipgloss.NewStyle().Foreground(accentColor)

	chat := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Chat"),
		fmt.Sprintf("• %-13s Send message", "Enter"),
		fmt.Sprintf("• %-13s New line", "Alt+Enter"),
		fmt.Sprintf("• %-13s Stop generating", "Esc"),
		fmt.Sprintf("• %-13s Run plugin", "Alt+P"),
		fmt.Sprintf("• %-13s New chat", "Alt+N"),
		fmt.Sprintf("• %-13s Copy last response", "Alt+Y"),
		fmt.Sprintf("• %-13s Copy conversation", "Alt+C"),
	)

	navigation := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Navigation"),
		fmt.Sprintf("• %-13s Half page down", "Alt+J"),
		fmt.Sprintf("• %-13s Half page up", "Alt+K"),
		fmt.Sprintf("• %-13s Full page down", "PgDn"),
		fmt.Sprintf("• %-13s Full page up", "PgUp"),
		fmt.Sprintf("• %-13s Check connection", "Alt+R"),
		fmt.Sprintf("• %-13s Toggle this help", "Alt+H"),
		fmt.Sprintf("• %-13s Quit", "Alt+Q"),
	)

	tips := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Tips"),
		"• Plugins run on the input text,",
		"  or on the last response when",
		"  the input is empty.",
	)

	columnStyle := lipgloss.NewStyle().Width(42).PaddingLeft(4)

	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(lipgloss.JoinVertical(lipgloss.Left, chat, "", tips)),
		columnStyle.Render(navigation),
	)

	footer := DimStyle.Render("Press Alt+H or Esc to close this help")

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		Width(92)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox.Render(lipgloss.JoinVertical(lipgloss.Center, title, "", twoColumns, "", footer)),
	)
}
