// Package plugin holds the catalog of text actions the assistant offers on a
// selection, their persisted enabled and prompt state, and dispatch by id.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryText     Category = "text"
	CategoryEmail    Category = "email"
	CategoryCode     Category = "code"
	CategoryDocument Category = "document"
	CategoryFinance  Category = "finance"
)

// Placeholder is replaced by the selected text when a prompt is rendered.
const Placeholder = "{text}"

// DefaultSystemPrompt is sent alongside every prompt-driven plugin request.
const DefaultSystemPrompt = "You are a helpful assistant."

// Executor performs a plugin's action on a piece of text. p is a snapshot
// of the plugin at call time, so p.Prompt() already reflects a custom prompt.
type Executor interface {
	Execute(ctx context.Context, p *Plugin, text string) Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, p *Plugin, text string) Result

func (f ExecutorFunc) Execute(ctx context.Context, p *Plugin, text string) Result {
	return f(ctx, p, text)
}

// Completer is the one capability prompt-driven plugins need from a backend:
// turn a system prompt and a user prompt into a full response.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

type Plugin struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Icon          string   `json:"icon"`
	Category      Category `json:"category"`
	DefaultPrompt string   `json:"defaultPrompt,omitempty"`
	CustomPrompt  string   `json:"customPrompt,omitempty"`
	Enabled       bool     `json:"enabled"`

	Executor Executor `json:"-"`
}

// Prompt returns the custom prompt when one is set, otherwise the default.
func (p *Plugin) Prompt() string {
	if p.CustomPrompt != "" {
		return p.CustomPrompt
	}
	return p.DefaultPrompt
}

// RenderTemplate substitutes every {text} in template with text. A template
// without the placeholder gets the text appended as a labelled block.
func RenderTemplate(template, text string) string {
	if strings.Contains(template, Placeholder) {
		return strings.ReplaceAll(template, Placeholder, text)
	}
	return template + "\n\n[TEXT]:\n" + text
}

type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindDisabled
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindDisabled:
		return "Disabled"
	case KindExecution:
		return "ExecutionError"
	default:
		return "None"
	}
}

// Error is the error form of a failed Result.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound  = &Error{Kind: KindNotFound}
	ErrDisabled  = &Error{Kind: KindDisabled}
	ErrExecution = &Error{Kind: KindExecution}
)

// NotFound is the error for an id no plugin is registered under.
func NotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Plugin %s not found", id)}
}

// Result is either Ok with the produced text or a failure with a kind and a
// human-readable message. The zero value is a failure with KindNone.
type Result struct {
	ok      bool
	data    string
	kind    Kind
	message string
}

func Ok(data string) Result {
	return Result{ok: true, data: data}
}

func Fail(kind Kind, message string) Result {
	return Result{kind: kind, message: message}
}

// Failed wraps err as an execution failure.
func Failed(err error) Result {
	return Fail(KindExecution, err.Error())
}

func (r Result) Success() bool { return r.ok }
func (r Result) Data() string  { return r.data }
func (r Result) Kind() Kind    { return r.kind }

// Message is the failure message, empty on success.
func (r Result) Message() string { return r.message }

// Err returns nil on success and an *Error otherwise.
func (r Result) Err() error {
	if r.ok {
		return nil
	}
	return &Error{Kind: r.kind, Message: r.message}
}

type resultJSON struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// MarshalJSON renders the {success, data, error} shape the extension expects.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Success: r.ok, Data: r.data}
	if !r.ok {
		out.Error = r.message
		out.Kind = r.kind.String()
	}
	return json.Marshal(out)
}
