// Package bridge carries the extension's runtime messages to the plugin
// registry and the completion backends. The browser starts `lovebug host`
// and talks to it over native messaging: every message is a little-endian
// uint32 length followed by that many bytes of JSON.
package bridge

import (
	"lovebug/model"
	"lovebug/plugin"
)

// Request types sent by the extension.
const (
	TypeExecutePlugin   = "EXECUTE_PLUGIN"
	TypeChat            = "CHAT"
	TypeListPlugins     = "LIST_PLUGINS"
	TypeTogglePlugin    = "TOGGLE_PLUGIN"
	TypeSetPrompt       = "SET_PROMPT"
	TypeCheckConnection = "CHECK_CONNECTION"
	TypeSettingsUpdated = "SETTINGS_UPDATED"
	TypeCommand         = "COMMAND"

	// TypeCancel stops the in-flight request with the same id.
	TypeCancel = "CANCEL"
)

// Response types. A request is answered with a response of its own type,
// except CHAT which streams CHUNK responses and ends with DONE or ERROR.
const (
	TypeChunk = "CHUNK"
	TypeDone  = "DONE"
	TypeError = "ERROR"
)

// Keyboard commands forwarded by the background page.
const (
	CommandToggleChat    = "toggle-chat"
	CommandResizeLarger  = "resize-larger"
	CommandResizeSmaller = "resize-smaller"
)

// Settings mirrors the extension's options page.
type Settings struct {
	ModelType string `json:"modelType,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Model     string `json:"model,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
}

type CommandPayload struct {
	Command string `json:"command"`
}

type Request struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Origin   string          `json:"origin,omitempty"`
	PluginID string          `json:"pluginId,omitempty"`
	Text     string          `json:"text,omitempty"`
	Prompt   string          `json:"prompt,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
	Messages []model.Message `json:"messages,omitempty"`
	Settings *Settings       `json:"settings,omitempty"`
	Payload  *CommandPayload `json:"payload,omitempty"`
}

// PluginInfo is the wire form of a plugin. The executor stays in-process.
type PluginInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Category      string `json:"category"`
	DefaultPrompt string `json:"defaultPrompt"`
	CustomPrompt  string `json:"customPrompt,omitempty"`
	Enabled       bool   `json:"enabled"`
}

func pluginInfo(p plugin.Plugin) PluginInfo {
	return PluginInfo{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Icon:          p.Icon,
		Category:      string(p.Category),
		DefaultPrompt: p.DefaultPrompt,
		CustomPrompt:  p.CustomPrompt,
		Enabled:       p.Enabled,
	}
}

type Response struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Success   bool         `json:"success"`
	Data      string       `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	Plugins   []PluginInfo `json:"plugins,omitempty"`
	Plugin    *PluginInfo  `json:"plugin,omitempty"`
	Connected *bool        `json:"connected,omitempty"`
	Done      bool         `json:"done,omitempty"`
}

func errorResponse(req Request, err error) Response {
	return Response{ID: req.ID, Type: req.Type, Error: err.Error()}
}
