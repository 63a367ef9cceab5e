package testutil

import (
	"lovebug/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		model.NewMessage(model.RoleSystem, "You are a helpful assistant."),
		model.NewMessage(model.RoleUser, "이 문단을 요약해 주세요."),
		model.NewMessage(model.RoleAssistant, "핵심은 세 가지입니다."),
		model.NewMessage(model.RoleUser, "더 짧게 부탁해요."),
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{model.NewMessage(model.RoleUser, content)}
}

// EmptyMessages returns an empty message slice for edge case testing
func EmptyMessages() []model.Message {
	return []model.Message{}
}
