package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lovebug/plugin"
)

const (
	pickerWidth     = 72
	pickerNameWidth = 20
	pickerDescWidth = 40
	pickerMaxRows   = 10
)

// PluginPicker is the overlay for choosing a plugin to run on the input
// text. Only enabled plugins are offered.
type PluginPicker struct {
	registry *plugin.Registry
	filter   textinput.Model
	matches  []plugin.Plugin
	selected int
}

func NewPluginPicker(registry *plugin.Registry) PluginPicker {
	ti := textinput.New()
	ti.Prompt = "Filter: "
	ti.CharLimit = 64

	p := PluginPicker{registry: registry, filter: ti}
	p.refresh()
	return p
}

func (p *PluginPicker) Open() {
	p.filter.SetValue("")
	p.filter.Focus()
	p.selected = 0
	p.refresh()
}

func (p *PluginPicker) Close() {
	p.filter.Blur()
}

func (p *PluginPicker) refresh() {
	p.matches = nil
	if p.registry == nil {
		return
	}
	for _, pl := range p.registry.Find(p.filter.Value()) {
		if pl.Enabled {
			p.matches = append(p.matches, pl)
		}
	}
	if p.selected >= len(p.matches) {
		p.selected = max(len(p.matches)-1, 0)
	}
}

// Selected returns the highlighted plugin.
func (p PluginPicker) Selected() (plugin.Plugin, bool) {
	if p.selected < 0 || p.selected >= len(p.matches) {
		return plugin.Plugin{}, false
	}
	return p.matches[p.selected], true
}

// Update handles navigation and filtering. Enter and Esc are left to the
// caller.
func (p PluginPicker) Update(msg tea.Msg) (PluginPicker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "ctrl+k", "alt+k":
			if p.selected > 0 {
				p.selected--
			}
			return p, nil
		case "down", "ctrl+j", "alt+j":
			if p.selected < len(p.matches)-1 {
				p.selected++
			}
			return p, nil
		}
	}

	var cmd tea.Cmd
	before := p.filter.Value()
	p.filter, cmd = p.filter.Update(msg)
	if p.filter.Value() != before {
		p.selected = 0
		p.refresh()
	}
	return p, cmd
}

func fitWidth(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return s + strings.Repeat(" ", max(width-runewidth.StringWidth(s), 0))
}

func pickerRow(p plugin.Plugin, selected bool) string {
	indicator := "  "
	name := fitWidth(p.Icon+" "+p.Name, pickerNameWidth)
	desc := fitWidth(p.Description, pickerDescWidth)
	if selected {
		indicator = SelectedStyle.Render("▶ ")
		name = SelectedStyle.Render(name)
		desc = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(desc)
	}
	return fmt.Sprintf("%s%s  %s  %s", indicator, name, desc, DimStyle.Render("["+string(p.Category)+"]"))
}

func (p PluginPicker) View(width, height int) string {
	rows := []string{p.filter.View(), ""}

	if len(p.matches) == 0 {
		rows = append(rows, DimStyle.Render("일치하는 플러그인이 없습니다"))
	}

	start := 0
	if p.selected >= pickerMaxRows {
		start = p.selected - pickerMaxRows + 1
	}
	end := min(start+pickerMaxRows, len(p.matches))
	for i := start; i < end; i++ {
		rows = append(rows, pickerRow(p.matches[i], i == p.selected))
	}

	rows = append(rows, "", FormatFooter("↑/↓", "Navigate", "Enter", "Run", "Esc", "Close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		Width(pickerWidth + 20)

	title := HighlightStyle.Render("Run plugin")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", strings.Join(rows, "\n"))))
}
