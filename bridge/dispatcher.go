package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"lovebug/config"
	"lovebug/model"
	"lovebug/plugin"
	"lovebug/security"
	"lovebug/sse"
)

var (
	ErrUnknownType      = errors.New("알 수 없는 요청 유형입니다")
	ErrOriginNotAllowed = errors.New("허용되지 않은 출처입니다")
	ErrNoProvider       = errors.New("API 설정이 필요합니다")
	ErrEmptyChat        = errors.New("메시지가 비어 있습니다")
)

// HealthChecker probes the completion endpoint. *sse.Client implements it.
type HealthChecker interface {
	CheckConnection(ctx context.Context) bool
}

// ReconfigureFunc applies settings pushed by the options page and returns
// the provider subsequent CHAT requests should use.
type ReconfigureFunc func(ctx context.Context, s Settings) (model.Provider, error)

// Emit delivers one response to the extension.
type Emit func(Response) error

// Dispatcher answers extension requests. It is safe for concurrent use.
type Dispatcher struct {
	Registry *plugin.Registry
	Tracker  *model.ConnectionTracker
	Health   HealthChecker

	// AllowedOrigins restricts requests that carry a page origin. Requests
	// from extension pages carry none.
	AllowedOrigins []string
	// Sanitize HTML-escapes plugin results and chat chunks before they are
	// injected into the page.
	Sanitize bool

	Reconfigure ReconfigureFunc

	mu       sync.RWMutex
	provider model.Provider
}

func NewDispatcher(registry *plugin.Registry, provider model.Provider) *Dispatcher {
	return &Dispatcher{
		Registry: registry,
		Tracker:  &model.ConnectionTracker{},
		provider: provider,
	}
}

func (d *Dispatcher) Provider() model.Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.provider
}

func (d *Dispatcher) SetProvider(p model.Provider) {
	d.mu.Lock()
	d.provider = p
	d.mu.Unlock()
	d.Tracker.Reset()
}

func (d *Dispatcher) escape(s string) string {
	if d.Sanitize {
		return security.SanitizeInput(s)
	}
	return s
}

// Handle processes req and emits its responses. Every request gets at least
// one response; the returned error is only non-nil when emit failed.
func (d *Dispatcher) Handle(ctx context.Context, req Request, emit Emit) error {
	if config.Debug {
		config.DebugLog.Printf("[Bridge] %s id=%s plugin=%q", req.Type, req.ID, req.PluginID)
	}

	if req.Origin != "" && len(d.AllowedOrigins) > 0 && !security.IsAllowedOrigin(req.Origin, d.AllowedOrigins) {
		config.SecureLog("warn", "rejected request from origin", map[string]any{"origin": req.Origin, "type": req.Type})
		return emit(errorResponse(req, ErrOriginNotAllowed))
	}

	switch req.Type {
	case TypeExecutePlugin:
		return emit(d.executePlugin(ctx, req))
	case TypeChat:
		return d.chat(ctx, req, emit)
	case TypeListPlugins:
		return emit(d.listPlugins(req))
	case TypeTogglePlugin:
		return emit(d.togglePlugin(ctx, req))
	case TypeSetPrompt:
		return emit(d.setPrompt(ctx, req))
	case TypeCheckConnection:
		return emit(d.checkConnection(ctx, req))
	case TypeSettingsUpdated:
		return emit(d.settingsUpdated(ctx, req))
	case TypeCommand:
		return emit(d.command(req))
	default:
		return emit(errorResponse(req, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)))
	}
}

func (d *Dispatcher) executePlugin(ctx context.Context, req Request) Response {
	res := d.Registry.Execute(ctx, req.PluginID, req.Text)
	resp := Response{ID: req.ID, Type: req.Type, Success: res.Success()}
	if res.Success() {
		resp.Data = d.escape(res.Data())
		return resp
	}
	resp.Error = res.Message()
	resp.Kind = res.Kind().String()
	return resp
}

func (d *Dispatcher) listPlugins(req Request) Response {
	all := d.Registry.All()
	infos := make([]PluginInfo, 0, len(all))
	for _, p := range all {
		infos = append(infos, pluginInfo(p))
	}
	return Response{ID: req.ID, Type: req.Type, Success: true, Plugins: infos}
}

func (d *Dispatcher) togglePlugin(ctx context.Context, req Request) Response {
	var (
		p  *plugin.Plugin
		ok bool
	)
	if req.Enabled != nil {
		p, ok = d.Registry.SetEnabled(ctx, req.PluginID, *req.Enabled)
	} else {
		p, ok = d.Registry.Toggle(ctx, req.PluginID)
	}
	if !ok {
		return errorResponse(req, plugin.NotFound(req.PluginID))
	}
	info := pluginInfo(*p)
	return Response{ID: req.ID, Type: req.Type, Success: true, Plugin: &info}
}

// setPrompt stores req.Prompt as the custom prompt; a blank prompt restores
// the default.
func (d *Dispatcher) setPrompt(ctx context.Context, req Request) Response {
	var (
		p  *plugin.Plugin
		ok bool
	)
	if strings.TrimSpace(req.Prompt) == "" {
		p, ok = d.Registry.ResetPrompt(ctx, req.PluginID)
	} else {
		p, ok = d.Registry.SetCustomPrompt(ctx, req.PluginID, req.Prompt)
	}
	if !ok {
		return errorResponse(req, plugin.NotFound(req.PluginID))
	}
	info := pluginInfo(*p)
	return Response{ID: req.ID, Type: req.Type, Success: true, Plugin: &info}
}

func (d *Dispatcher) checkConnection(ctx context.Context, req Request) Response {
	var connected bool
	switch {
	case d.Health != nil:
		connected = d.Health.CheckConnection(ctx)
	case d.Provider() != nil:
		connected = d.Provider().Ping(ctx) == nil
	}
	d.Tracker.Report(connected)
	return Response{ID: req.ID, Type: req.Type, Success: true, Connected: &connected}
}

func (d *Dispatcher) settingsUpdated(ctx context.Context, req Request) Response {
	if req.Settings == nil {
		return errorResponse(req, errors.New("settings missing"))
	}
	config.SecureLog("info", "settings updated", map[string]any{
		"modelType": req.Settings.ModelType,
		"endpoint":  req.Settings.Endpoint,
		"apiKey":    req.Settings.APIKey,
	})
	if d.Reconfigure == nil {
		return Response{ID: req.ID, Type: req.Type, Success: true}
	}

	p, err := d.Reconfigure(ctx, *req.Settings)
	if err != nil {
		return errorResponse(req, err)
	}
	d.SetProvider(p)
	return Response{ID: req.ID, Type: req.Type, Success: true}
}

// command acknowledges the widget shortcuts. Acting on them is up to the
// content script.
func (d *Dispatcher) command(req Request) Response {
	if req.Payload == nil {
		return errorResponse(req, errors.New("command missing"))
	}
	switch req.Payload.Command {
	case CommandToggleChat, CommandResizeLarger, CommandResizeSmaller:
		return Response{ID: req.ID, Type: req.Type, Success: true, Data: req.Payload.Command}
	default:
		return errorResponse(req, fmt.Errorf("unknown command: %q", req.Payload.Command))
	}
}

func chatMessages(req Request) []model.Message {
	messages := make([]model.Message, 0, len(req.Messages)+2)
	if req.Prompt != "" {
		messages = append(messages, model.NewMessage(model.RoleSystem, req.Prompt))
	}
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	if req.Text != "" {
		messages = append(messages, model.NewMessage(model.RoleUser, req.Text))
	}
	return messages
}

// chat streams the provider's answer as CHUNK responses and finishes with
// exactly one DONE or ERROR.
func (d *Dispatcher) chat(ctx context.Context, req Request, emit Emit) error {
	p := d.Provider()
	if p == nil {
		return emit(Response{ID: req.ID, Type: TypeError, Error: ErrNoProvider.Error()})
	}
	messages := chatMessages(req)
	if len(messages) == 0 {
		return emit(Response{ID: req.ID, Type: TypeError, Error: ErrEmptyChat.Error()})
	}

	var emitErr error
	err := p.Chat(ctx, messages, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if err := emit(Response{ID: req.ID, Type: TypeChunk, Success: true, Data: d.escape(chunk)}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		if config.Debug {
			config.DebugLog.Printf("[Bridge] chat %s failed: %v", req.ID, err)
		}
		ue := sse.AsError(err)
		resp := Response{ID: req.ID, Type: TypeError, Error: ue.Error(), Done: true}
		if ue.Kind != sse.KindUnknown {
			resp.Kind = ue.Kind.String()
		}
		return emit(resp)
	}
	return emit(Response{ID: req.ID, Type: TypeDone, Success: true, Done: true})
}
