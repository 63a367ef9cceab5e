package plugin

import (
	"context"
	"errors"
	"sync"
)

type completion struct {
	system string
	prompt string
}

// fakeCompleter records every request and answers with reply, or with the
// result of respond when set.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   []completion
	reply   string
	err     error
	respond func(system, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, completion{system: system, prompt: prompt})
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(system, prompt)
	}
	return f.reply, f.err
}

func (f *fakeCompleter) Calls() []completion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completion(nil), f.calls...)
}

type brokenStore struct{}

var errBroken = errors.New("store unavailable")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte) error   { return errBroken }
