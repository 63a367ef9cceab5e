package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"lovebug/config"
	"lovebug/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

const (
	codeBar       = "┃"
	streamCursor  = "▋"
	ansiReset     = "\x1b[0m"
	ansiRed       = "\x1b[31m"
	ansiDarkGray  = "\x1b[90m"
	ansiGreenBold = "\x1b[32;1m"
)

func roleLabel(role model.Role) (string, string) {
	switch role {
	case model.RoleUser:
		return UserStyle.Render("You"), "user"
	case model.RoleAssistant:
		return AssistantStyle.Render("Lovebug"), "assistant"
	default:
		return DimStyle.Render("System"), "system"
	}
}

// renderTranscript lays out the conversation. streamingID marks the message
// still being written, which gets a cursor instead of rendered markdown.
func renderTranscript(messages []model.Message, rendered map[string]string, streamingID, spinner string) string {
	if len(messages) == 0 && spinner == "" {
		return DimStyle.Render("아직 메시지가 없습니다. 대화를 시작해 보세요!")
	}

	var content strings.Builder
	for _, msg := range messages {
		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))
		role, kind := roleLabel(msg.Role)

		if kind == "user" {
			content.WriteString(formatUserMessage(timestamp, role, msg.Content))
			continue
		}

		body := msg.Content
		switch {
		case msg.ID == streamingID:
			body += streamCursor
		case strings.HasPrefix(body, "Error: "):
			body = ErrorStyle.Render(body)
		default:
			if r, ok := rendered[msg.ID]; ok {
				body = r
			}
		}
		fmt.Fprintf(&content, "%s %s\n%s\n\n", timestamp, role, body)
	}

	// Waiting for the first chunk: the message does not exist yet.
	if spinner != "" {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		role, _ := roleLabel(model.RoleAssistant)
		fmt.Fprintf(&content, "%s %s\n%s\n\n", timestamp, role, spinner)
	}
	return content.String()
}

func formatUserMessage(timestamp, role, content string) string {
	bar := ansiGreenBold + codeBar + ansiReset

	var result strings.Builder
	fmt.Fprintf(&result, "%s %s %s\n", bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")
	return result.String()
}

// renderMarkdown renders content for a terminal of the given width. Links
// are flattened to bare URLs so the terminal can make them clickable.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	r := markdown.NewRenderer(width-4, 0)
	out := gomarkdown.Render(p.Parse([]byte(content)), r)

	rendered := inlineCodeRegex.ReplaceAllString(string(out), ansiRed+"$1"+ansiReset)
	rendered = colorURLs(rendered)
	return frameCodeBlocks(rendered, width)
}

func renderMarkdownCmd(id, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		if config.Debug {
			config.DebugLog.Printf("[UI] markdown for %s rendered in %v", id, time.Since(start))
		}
		return markdownRenderedMsg{MessageID: id, Rendered: rendered}
	}
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, ansiRed+"$1"+ansiReset)
		}
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the renderer's ┃ gutter with horizontal rules
// above and below each block.
func frameCodeBlocks(s string, width int) string {
	var result []string
	inCodeBlock := false
	rule := func(label string) string {
		n := max(width-4-len(label), 0)
		left := n / 2
		return ansiDarkGray + strings.Repeat("━", left) + ansiReset + label +
			ansiDarkGray + strings.Repeat("━", n-left) + ansiReset
	}

	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBar) {
			if !inCodeBlock {
				inCodeBlock = true
				result = append(result, "", rule("[code]"), "")
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			inCodeBlock = false
			result = append(result, "", rule(""), "")
		}
		result = append(result, line)
	}
	if inCodeBlock {
		result = append(result, "", rule(""), "")
	}
	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	return strings.TrimPrefix(line[idx+len(codeBar):], " ")
}
