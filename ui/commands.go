package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"lovebug/config"
	"lovebug/model"
	"lovebug/plugin"
)

const pingTimeout = 5 * time.Second

var errNoProvider = errors.New("API 설정이 필요합니다")

func pingCmd(p model.Provider) tea.Cmd {
	return func() tea.Msg {
		if p == nil {
			return pingResultMsg{Err: errNoProvider}
		}
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return pingResultMsg{Err: p.Ping(ctx)}
	}
}

// apiMessages builds the request history: the system prompt, then every
// user and assistant turn that has content.
func apiMessages(systemPrompt string, history []model.Message) []model.Message {
	out := make([]model.Message, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, model.NewMessage(model.RoleSystem, systemPrompt))
	}
	for _, m := range history {
		if m.Role == model.RoleSystem || m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// startStream runs Chat in the background and returns a channel carrying a
// streamChunkMsg per chunk followed by one streamDoneMsg or streamErrorMsg.
func startStream(ctx context.Context, p model.Provider, messages []model.Message) <-chan tea.Msg {
	ch := make(chan tea.Msg, 32)
	go func() {
		defer close(ch)
		err := p.Chat(ctx, messages, func(chunk string) error {
			select {
			case ch <- streamChunkMsg{Chunk: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			ch <- streamErrorMsg{Err: err}
			return
		}
		ch <- streamDoneMsg{}
	}()
	return ch
}

func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func runPluginCmd(ctx context.Context, registry *plugin.Registry, p plugin.Plugin, text string) tea.Cmd {
	return func() tea.Msg {
		if config.Debug {
			config.DebugLog.Printf("[UI] running plugin %s on %d chars", p.ID, len(text))
		}
		return pluginResultMsg{Plugin: p, Result: registry.Execute(ctx, p.ID, text)}
	}
}

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{What: what, Err: clipboard.WriteAll(text)}
	}
}

func lastAssistant(messages []model.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant && !strings.HasPrefix(messages[i].Content, "Error: ") {
			return messages[i].Content, true
		}
	}
	return "", false
}

func transcriptText(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		role := "Lovebug"
		if m.Role == model.RoleUser {
			role = "You"
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", m.Timestamp.Format("15:04"), role, m.Content)
	}
	return b.String()
}
