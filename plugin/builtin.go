package plugin

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the backend answered with no text.
var ErrEmptyResponse = errors.New("API로부터 응답을 받지 못했습니다.")

var errNoCompleter = errors.New("no completion backend configured")

// PromptExecutor renders the plugin's effective prompt around the text and
// sends it to a Completer.
type PromptExecutor struct {
	Completer    Completer
	SystemPrompt string
}

func NewPromptExecutor(c Completer) *PromptExecutor {
	return &PromptExecutor{Completer: c, SystemPrompt: DefaultSystemPrompt}
}

func (e *PromptExecutor) Execute(ctx context.Context, p *Plugin, text string) Result {
	if e.Completer == nil {
		return Failed(errNoCompleter)
	}
	out, err := e.Completer.Complete(ctx, e.SystemPrompt, RenderTemplate(p.Prompt(), text))
	if err != nil {
		return Failed(err)
	}
	if strings.TrimSpace(out) == "" {
		return Failed(ErrEmptyResponse)
	}
	return Ok(out)
}

// Builtins returns the general text plugins, all enabled and all executed
// by exec.
func Builtins(exec Executor) []Plugin {
	return []Plugin{
		{
			ID:            "summarize",
			Name:          "요약하기",
			Description:   "선택한 텍스트를 간결하게 요약합니다.",
			Icon:          "📝",
			Category:      CategoryText,
			DefaultPrompt: "다음 텍스트를 핵심 내용만 간결하게 한국어로 요약해 주세요.",
			Enabled:       true,
			Executor:      exec,
		},
		{
			ID:            "translate",
			Name:          "번역하기",
			Description:   "선택한 텍스트를 다른 언어로 번역합니다.",
			Icon:          "🌐",
			Category:      CategoryText,
			DefaultPrompt: "다음 텍스트를 영어로 번역해 주세요. 번역된 텍스트만 응답으로 제공해 주세요.",
			Enabled:       true,
			Executor:      exec,
		},
		{
			ID:            "rewrite",
			Name:          "다시 쓰기",
			Description:   "선택한 텍스트를 더 나은 표현으로 다시 작성합니다.",
			Icon:          "✏️",
			Category:      CategoryText,
			DefaultPrompt: "다음 텍스트를 더 명확하고 자연스러운 표현으로 다시 작성해 주세요. 원본의 의미는 유지해야 합니다.",
			Enabled:       true,
			Executor:      exec,
		},
		{
			ID:            "explain",
			Name:          "설명하기",
			Description:   "선택한 텍스트의 의미나 개념을 자세히 설명합니다.",
			Icon:          "💡",
			Category:      CategoryText,
			DefaultPrompt: "다음 텍스트나 개념에 대해 한국어로 자세히 설명해 주세요. 일반인이 이해하기 쉽게 예시를 들어주면 좋습니다.",
			Enabled:       true,
			Executor:      exec,
		},
	}
}
