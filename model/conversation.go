package model

import (
	"errors"
	"sync"
)

var (
	// ErrStreamInProgress is returned when an assistant turn is already being
	// streamed into the conversation.
	ErrStreamInProgress = errors.New("an assistant response is already streaming")
	// ErrWriterClosed is returned when a finished writer is written to.
	ErrWriterClosed = errors.New("assistant response already finished")
)

// Conversation is the session-scoped list of messages. At most one assistant
// message is under construction at any time and only its writer may change it.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	active   *AssistantWriter
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// AddUser appends a user message and returns it.
func (c *Conversation) AddUser(content string) Message {
	msg := NewMessage(RoleUser, content)

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	return msg
}

// BeginAssistant reserves the next assistant turn. The message itself is
// created when the first chunk arrives.
func (c *Conversation) BeginAssistant() (*AssistantWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrStreamInProgress
	}
	w := &AssistantWriter{conv: c, index: -1}
	c.active = w
	return w, nil
}

// Messages returns a snapshot of the conversation.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Streaming reports whether an assistant writer is open.
func (c *Conversation) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Reset drops every message. It refuses while a response is streaming.
func (c *Conversation) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return ErrStreamInProgress
	}
	c.messages = nil
	return nil
}

// AssistantWriter owns the assistant message of one streaming operation.
type AssistantWriter struct {
	conv  *Conversation
	index int
	done  bool
}

// Append adds a chunk, creating the message on the first call.
func (w *AssistantWriter) Append(chunk string) error {
	c := w.conv
	c.mu.Lock()
	defer c.mu.Unlock()

	if w.done {
		return ErrWriterClosed
	}
	if w.index < 0 {
		c.messages = append(c.messages, NewMessage(RoleAssistant, chunk))
		w.index = len(c.messages) - 1
		return nil
	}
	c.messages[w.index].Content += chunk
	return nil
}

// Content returns what has been streamed so far.
func (w *AssistantWriter) Content() string {
	c := w.conv
	c.mu.Lock()
	defer c.mu.Unlock()

	if w.index < 0 {
		return ""
	}
	return c.messages[w.index].Content
}

// Complete releases the conversation. The message becomes immutable.
func (w *AssistantWriter) Complete() {
	w.finish(nil)
}

// Fail replaces the assistant message with "Error: <msg>", creating it if no
// chunk had arrived, and releases the conversation.
func (w *AssistantWriter) Fail(err error) {
	w.finish(err)
}

func (w *AssistantWriter) finish(err error) {
	c := w.conv
	c.mu.Lock()
	defer c.mu.Unlock()

	if w.done {
		return
	}
	w.done = true
	if c.active == w {
		c.active = nil
	}
	if err == nil {
		return
	}

	text := "Error: " + err.Error()
	if w.index < 0 {
		c.messages = append(c.messages, NewMessage(RoleAssistant, text))
		w.index = len(c.messages) - 1
		return
	}
	c.messages[w.index].Content = text
}
