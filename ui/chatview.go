// Package ui is the terminal chat: a Bubble Tea program over the same
// conversation, providers and plugin registry the extension uses.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lovebug/model"
	"lovebug/plugin"
)

const (
	inputHeight = 3
	// title line, blank separator and status bar
	chromeHeight = 3
)

// Deps is what the chat view talks to.
type Deps struct {
	Provider     model.Provider
	Registry     *plugin.Registry
	Tracker      *model.ConnectionTracker
	SystemPrompt string
}

type ChatView struct {
	deps Deps
	conv *model.Conversation

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	// active streaming or plugin run
	writer  *model.AssistantWriter
	stream  <-chan tea.Msg
	cancel  context.CancelFunc
	running string

	rendered map[string]string

	showHelp   bool
	showPicker bool
	picker     PluginPicker

	flash string
}

func NewChatView(deps Deps) ChatView {
	if deps.Tracker == nil {
		deps.Tracker = &model.ConnectionTracker{}
	}

	ta := textarea.New()
	ta.Placeholder = "메시지를 입력하세요. Alt+P로 플러그인을 실행합니다..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.SetWidth(80)
	// Enter sends; Alt+Enter inserts the newline.
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	return ChatView{
		deps:     deps,
		conv:     model.NewConversation(),
		viewport: viewport.New(0, 0),
		textarea: ta,
		spinner:  sp,
		rendered: make(map[string]string),
		picker:   NewPluginPicker(deps.Registry),
	}
}

// Conversation exposes the transcript, mainly for tests.
func (a ChatView) Conversation() *model.Conversation {
	return a.conv
}

func (a ChatView) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.spinner.Tick, pingCmd(a.deps.Provider))
}

func (a ChatView) busy() bool {
	return a.writer != nil
}

func (a *ChatView) resize(width, height int) {
	a.width = width
	a.height = height
	a.textarea.SetWidth(width)
	a.viewport.Width = width
	a.viewport.Height = max(height-inputHeight-chromeHeight, 1)
	a.ready = true
}

func (a *ChatView) refreshViewport() {
	streamingID := ""
	spin := ""
	if a.busy() {
		msgs := a.conv.Messages()
		if a.writer.Content() == "" {
			spin = a.spinner.View()
			if a.running != "" {
				spin += " " + DimStyle.Render(a.running+" 실행 중...")
			}
		} else if len(msgs) > 0 {
			streamingID = msgs[len(msgs)-1].ID
		}
	}
	a.viewport.SetContent(renderTranscript(a.conv.Messages(), a.rendered, streamingID, spin))
	a.viewport.GotoBottom()
}

func (a ChatView) View() string {
	if !a.ready {
		return "Loading Lovebug..."
	}
	if a.showHelp {
		return renderHelpModal(a.width, a.height)
	}
	if a.showPicker {
		return a.picker.View(a.width, a.height)
	}

	modelName := "no provider"
	if a.deps.Provider != nil {
		modelName = a.deps.Provider.GetDisplayName()
	}
	title := AssistantStyle.Render("Lovebug") +
		TitleStyle.Render(fmt.Sprintf(" - %s", modelName)) +
		DimStyle.Render(" | ") + ConnectionIndicator(a.deps.Tracker.State())

	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	status := fmt.Sprintf("Alt+Q %s  Enter %s  Alt+Enter %s  Alt+P %s  Alt+Y %s  Alt+H %s",
		descStyle.Render("Quit"),
		descStyle.Render("Send"),
		descStyle.Render("New Line"),
		descStyle.Render("Plugins"),
		descStyle.Render("Copy"),
		descStyle.Render("Help"),
	)
	if a.busy() {
		status = "Esc " + descStyle.Render("Stop") + "  " + status
	}
	if a.flash != "" {
		status = HighlightStyle.Render(a.flash) + "  " + status
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		a.viewport.View(),
		a.textarea.View(),
		StatusStyle.Render(status),
	)
}
