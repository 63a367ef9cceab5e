package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"lovebug/config"
	"lovebug/model"
	"lovebug/plugin"
)

func (a ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		a.refreshViewport()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.busy() && a.ready {
			a.refreshViewport()
		}
		return a, cmd

	case streamChunkMsg, streamDoneMsg, streamErrorMsg, pluginResultMsg:
		return a.handleResponse(msg)

	case markdownRenderedMsg:
		a.rendered[msg.MessageID] = msg.Rendered
		a.refreshViewport()
		return a, nil

	case pingResultMsg:
		a.deps.Tracker.Report(msg.Err == nil)
		if msg.Err != nil && config.Debug {
			config.DebugLog.Printf("[UI] ping failed: %v", msg.Err)
		}
		return a, nil

	case clipboardMsg:
		if msg.Err != nil {
			a.flash = "복사 실패: " + msg.Err.Error()
		} else {
			a.flash = msg.What + " 복사됨"
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a ChatView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.flash = ""

	switch msg.String() {
	case "ctrl+c", "alt+q":
		if a.cancel != nil {
			a.cancel()
		}
		return a, tea.Quit
	}

	if a.showHelp {
		switch msg.String() {
		case "esc", "alt+h", "q":
			a.showHelp = false
		}
		return a, nil
	}

	if a.showPicker {
		return a.handlePickerKey(msg)
	}

	switch msg.String() {
	case "alt+h":
		a.showHelp = true
		return a, nil

	case "alt+p", "ctrl+p":
		a.showPicker = true
		a.picker.Open()
		a.textarea.Blur()
		return a, nil

	case "esc":
		if a.cancel != nil {
			a.cancel()
		}
		return a, nil

	case "enter":
		return a.send()

	case "alt+n":
		if err := a.conv.Reset(); err == nil {
			a.rendered = make(map[string]string)
			a.refreshViewport()
		}
		return a, nil

	case "alt+r":
		return a, pingCmd(a.deps.Provider)

	case "alt+y":
		if text, ok := lastAssistant(a.conv.Messages()); ok {
			return a, copyCmd("응답", text)
		}
		return a, nil

	case "alt+c":
		return a, copyCmd("대화", transcriptText(a.conv.Messages()))

	case "alt+j":
		a.viewport.HalfPageDown()
		return a, nil
	case "alt+k":
		a.viewport.HalfPageUp()
		return a, nil
	case "pgdown":
		a.viewport.PageDown()
		return a, nil
	case "pgup":
		a.viewport.PageUp()
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a ChatView) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showPicker = false
		a.picker.Close()
		a.textarea.Focus()
		return a, nil

	case "enter":
		p, ok := a.picker.Selected()
		a.showPicker = false
		a.picker.Close()
		a.textarea.Focus()
		if !ok {
			return a, nil
		}
		return a.runPlugin(p.ID)
	}

	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)
	return a, cmd
}

// send starts a chat turn with the input text.
func (a ChatView) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.textarea.Value())
	if text == "" || a.busy() {
		return a, nil
	}
	if a.deps.Provider == nil {
		a.flash = errNoProvider.Error()
		return a, nil
	}

	a.conv.AddUser(text)
	w, err := a.conv.BeginAssistant()
	if err != nil {
		return a, nil
	}
	a.textarea.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	a.writer = w
	a.cancel = cancel
	a.stream = startStream(ctx, a.deps.Provider, apiMessages(a.deps.SystemPrompt, a.conv.Messages()))
	a.refreshViewport()
	return a, waitForStream(a.stream)
}

// runPlugin executes a plugin on the input text, or on the last response
// when the input is empty. The result becomes the assistant turn.
func (a ChatView) runPlugin(id string) (tea.Model, tea.Cmd) {
	if a.busy() || a.deps.Registry == nil {
		return a, nil
	}
	p, ok := a.deps.Registry.Get(id)
	if !ok {
		return a, nil
	}

	text := strings.TrimSpace(a.textarea.Value())
	if text == "" {
		text, _ = lastAssistant(a.conv.Messages())
	}
	if text == "" {
		a.flash = "플러그인을 실행할 텍스트가 없습니다"
		return a, nil
	}

	a.conv.AddUser(p.Icon + " " + p.Name + "\n" + text)
	w, err := a.conv.BeginAssistant()
	if err != nil {
		return a, nil
	}
	a.textarea.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	a.writer = w
	a.cancel = cancel
	a.running = p.Name
	a.refreshViewport()
	return a, runPluginCmd(ctx, a.deps.Registry, *p, text)
}

func (a *ChatView) finish() {
	if a.cancel != nil {
		a.cancel()
	}
	a.writer = nil
	a.stream = nil
	a.cancel = nil
	a.running = ""
}

func (a ChatView) handleResponse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.writer == nil {
		return a, nil
	}

	switch msg := msg.(type) {
	case streamChunkMsg:
		a.writer.Append(msg.Chunk)
		a.refreshViewport()
		return a, waitForStream(a.stream)

	case streamDoneMsg:
		a.deps.Tracker.Report(true)
		content := a.writer.Content()
		if content == "" {
			a.writer.Fail(plugin.ErrEmptyResponse)
			a.finish()
			a.refreshViewport()
			return a, nil
		}
		a.writer.Complete()
		return a.completed(content)

	case streamErrorMsg:
		err := msg.Err
		if errors.Is(err, context.Canceled) {
			err = errors.New("응답 생성을 중단했습니다")
		}
		a.writer.Fail(err)
		a.finish()
		a.refreshViewport()
		return a, nil

	case pluginResultMsg:
		if !msg.Result.Success() {
			a.writer.Fail(msg.Result.Err())
			a.finish()
			a.refreshViewport()
			return a, nil
		}
		a.writer.Append(msg.Result.Data())
		a.writer.Complete()
		return a.completed(msg.Result.Data())
	}
	return a, nil
}

// completed renders the finished message as markdown in the background.
func (a ChatView) completed(content string) (tea.Model, tea.Cmd) {
	a.finish()
	a.refreshViewport()

	msgs := a.conv.Messages()
	if content == "" || len(msgs) == 0 {
		return a, nil
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant {
		return a, nil
	}
	return a, renderMarkdownCmd(last.ID, content, a.width)
}
