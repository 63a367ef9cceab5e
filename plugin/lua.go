package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"lovebug/config"
)

// Script plugins are Lua files returning a table:
//
//	return {
//	  id = "shout",
//	  name = "Shout",
//	  prompt = "Rewrite in capitals: {text}",
//	  execute = function(text, prompt)
//	    return complete(render(prompt, text))
//	  end,
//	}
//
// execute is optional; without it the prompt is sent like a built-in. The
// globals complete(prompt [, system]) and render(template, text) are
// available to scripts; io, os, package and the loaders are not.

const defaultScriptIcon = "🧩"

// LoadLuaPlugins loads every *.lua file in dir. A missing directory yields
// no plugins. Scripts that fail to load are skipped and reported together in
// the returned error.
func LoadLuaPlugins(dir string, c Completer) ([]Plugin, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, fmt.Errorf("failed to list plugin scripts: %w", err)
	}

	var plugins []Plugin
	var errs []error
	for _, path := range paths {
		p, err := LoadLuaPlugin(path, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins, errors.Join(errs...)
}

func LoadLuaPlugin(path string, c Completer) (Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Plugin{}, fmt.Errorf("failed to read plugin script %s: %w", path, err)
	}

	exec := &LuaExecutor{name: filepath.Base(path), source: string(src), completer: c}

	L := newLuaState()
	defer L.Close()

	def, err := exec.load(L)
	if err != nil {
		return Plugin{}, err
	}

	enabled := def.RawGetString("enabled")
	p := Plugin{
		ID:            tableString(def, "id", ""),
		Name:          tableString(def, "name", ""),
		Description:   tableString(def, "description", ""),
		Icon:          tableString(def, "icon", defaultScriptIcon),
		Category:      Category(tableString(def, "category", string(CategoryText))),
		DefaultPrompt: tableString(def, "prompt", ""),
		Enabled:       enabled == lua.LNil || lua.LVAsBool(enabled),
	}
	if p.ID == "" {
		return Plugin{}, fmt.Errorf("plugin script %s: missing id", exec.name)
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	if fn := def.RawGetString("execute"); fn.Type() == lua.LTFunction {
		p.Executor = exec
	} else {
		if p.DefaultPrompt == "" {
			return Plugin{}, fmt.Errorf("plugin script %s: needs a prompt or an execute function", exec.name)
		}
		p.Executor = NewPromptExecutor(c)
	}

	if config.Debug {
		config.DebugLog.Printf("[Plugin] loaded script plugin %s from %s", p.ID, path)
	}
	return p, nil
}

func tableString(t *lua.LTable, key, def string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok && s != "" {
		return string(s)
	}
	return def
}

// LuaExecutor runs a script's execute function in a fresh sandboxed state
// per call, so scripts keep no state between executions.
type LuaExecutor struct {
	name      string
	source    string
	completer Completer
}

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	// stdout may be the native-messaging channel.
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		if config.Debug {
			parts := make([]string, L.GetTop())
			for i := range parts {
				parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
			}
			config.DebugLog.Printf("[Lua] %s", strings.Join(parts, "\t"))
		}
		return 0
	}))

	L.SetGlobal("render", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(RenderTemplate(L.CheckString(1), L.CheckString(2))))
		return 1
	}))

	return L
}

func (e *LuaExecutor) load(L *lua.LState) (*lua.LTable, error) {
	if err := L.DoString(e.source); err != nil {
		return nil, fmt.Errorf("plugin script %s: %w", e.name, err)
	}
	def, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("plugin script %s: must return a table", e.name)
	}
	L.Pop(1)
	return def, nil
}

func (e *LuaExecutor) Execute(ctx context.Context, p *Plugin, text string) Result {
	L := newLuaState()
	defer L.Close()
	L.SetContext(ctx)

	L.SetGlobal("complete", L.NewFunction(func(L *lua.LState) int {
		prompt := L.CheckString(1)
		system := L.OptString(2, DefaultSystemPrompt)
		if e.completer == nil {
			L.RaiseError("%s", errNoCompleter.Error())
			return 0
		}
		out, err := e.completer.Complete(ctx, system, prompt)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LString(out))
		return 1
	}))

	def, err := e.load(L)
	if err != nil {
		return Failed(err)
	}

	err = L.CallByParam(lua.P{
		Fn:      def.RawGetString("execute"),
		NRet:    2,
		Protect: true,
	}, lua.LString(text), lua.LString(p.Prompt()))
	if err != nil {
		return Fail(KindExecution, luaErrorMessage(err))
	}

	out, errVal := L.Get(-2), L.Get(-1)
	L.Pop(2)

	if errVal != lua.LNil {
		return Fail(KindExecution, L.ToStringMeta(errVal).String())
	}
	s, ok := out.(lua.LString)
	if !ok || strings.TrimSpace(string(s)) == "" {
		return Failed(ErrEmptyResponse)
	}
	return Ok(string(s))
}

// luaErrorMessage drops the Lua stack trace from a script error.
func luaErrorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		msg := apiErr.Object.String()
		// Raised errors carry a "<chunk>:<line>: " position prefix.
		if i := strings.Index(msg, ": "); i >= 0 && strings.Contains(msg[:i], ":") {
			msg = msg[i+2:]
		}
		return msg
	}
	return err.Error()
}
