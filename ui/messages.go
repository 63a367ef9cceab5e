package ui

import (
	"lovebug/plugin"
)

type streamChunkMsg struct {
	Chunk string
}

type streamDoneMsg struct{}

type streamErrorMsg struct {
	Err error
}

type markdownRenderedMsg struct {
	MessageID string
	Rendered  string
}

type pingResultMsg struct {
	Err error
}

type pluginResultMsg struct {
	Plugin plugin.Plugin
	Result plugin.Result
}

type clipboardMsg struct {
	What string
	Err  error
}
