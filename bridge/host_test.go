package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovebug/model"
	"lovebug/plugin"
	"lovebug/provider/testutil"
)

func frames(t *testing.T, reqs ...Request) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range reqs {
		require.NoError(t, WriteMessage(&buf, r))
	}
	return &buf
}

func readAll(t *testing.T, r io.Reader) []Response {
	t.Helper()
	var out []Response
	for {
		var resp Response
		err := ReadMessage(r, &resp)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, resp)
	}
}

func byID(resps []Response) map[string][]Response {
	out := make(map[string][]Response)
	for _, r := range resps {
		out[r.ID] = append(out[r.ID], r)
	}
	return out
}

func TestHostServesRequests(t *testing.T) {
	d, _ := newTestDispatcher(testutil.NewStreamingMock("m", "A", "B"))
	h := NewHost(d)

	in := frames(t,
		Request{ID: "list", Type: TypeListPlugins},
		Request{ID: "run", Type: TypeExecutePlugin, PluginID: "shout", Text: "x"},
		Request{ID: "chat", Type: TypeChat, Text: "q"},
	)
	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), in, &out))

	got := byID(readAll(t, &out))
	require.Len(t, got["list"], 1)
	assert.Len(t, got["list"][0].Plugins, 2)
	require.Len(t, got["run"], 1)
	assert.Equal(t, "shout x", got["run"][0].Data)

	chat := got["chat"]
	require.Len(t, chat, 3)
	assert.Equal(t, []string{TypeChunk, TypeChunk, TypeDone}, []string{chat[0].Type, chat[1].Type, chat[2].Type})
	assert.Equal(t, "AB", chat[0].Data+chat[1].Data)
}

func TestHostInvalidMessage(t *testing.T) {
	d, _ := newTestDispatcher(nil)
	h := NewHost(d)

	var in bytes.Buffer
	in.Write([]byte{2, 0, 0, 0})
	in.WriteString("{]")
	require.NoError(t, WriteMessage(&in, Request{ID: "list", Type: TypeListPlugins}))

	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), &in, &out))

	resps := readAll(t, &out)
	require.Len(t, resps, 2)
	assert.Equal(t, TypeError, resps[0].Type)
	assert.Equal(t, "list", resps[1].ID)
}

func TestHostTruncatedInput(t *testing.T) {
	d, _ := newTestDispatcher(nil)
	h := NewHost(d)

	in := bytes.NewReader([]byte{9, 0, 0, 0, '{'})
	err := h.Serve(context.Background(), in, io.Discard)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestHostCancel(t *testing.T) {
	mock := testutil.NewMockProvider("m")
	mock.ChatFunc = func(ctx context.Context, _ []model.Message, cb model.StreamCallback) error {
		<-ctx.Done()
		return ctx.Err()
	}
	d, _ := newTestDispatcher(mock)
	h := NewHost(d)

	in := frames(t,
		Request{ID: "chat", Type: TypeChat, Text: "q"},
		Request{ID: "chat", Type: TypeCancel},
	)
	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), in, &out))

	resps := readAll(t, &out)
	require.Len(t, resps, 1)
	assert.Equal(t, TypeError, resps[0].Type)
	assert.Equal(t, "요청이 취소되었습니다", resps[0].Error)
	assert.Equal(t, "Canceled", resps[0].Kind)
}

func TestHostCancelWhileSaturated(t *testing.T) {
	var started atomic.Int32
	mock := testutil.NewMockProvider("m")
	mock.ChatFunc = func(ctx context.Context, _ []model.Message, _ model.StreamCallback) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}
	d, _ := newTestDispatcher(mock)
	h := NewHost(d)
	h.SetConcurrency(2)

	pr, pw := io.Pipe()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- h.Serve(context.Background(), pr, &out) }()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, WriteMessage(pw, Request{ID: id, Type: TypeChat, Text: "q"}))
	}
	require.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, time.Millisecond)

	// Two streams hold both slots and two more wait; the reader must still
	// pick up every CANCEL.
	cancelled := make(chan error, 1)
	go func() {
		for _, id := range ids {
			if err := WriteMessage(pw, Request{ID: id, Type: TypeCancel}); err != nil {
				cancelled <- err
				return
			}
		}
		cancelled <- pw.Close()
	}()

	select {
	case err := <-cancelled:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancel requests were not read while the host was busy")
	}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("host did not finish after every request was cancelled")
	}

	got := byID(readAll(t, &out))
	for _, id := range ids {
		require.Len(t, got[id], 1, id)
		assert.Equal(t, TypeError, got[id][0].Type, id)
		assert.Equal(t, "요청이 취소되었습니다", got[id][0].Error, id)
	}
}

func TestHostRunsRequestsConcurrently(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})

	d, _ := newTestDispatcher(nil)
	d.Registry.Register(plugin.Plugin{
		ID:      "slow",
		Enabled: true,
		Executor: plugin.ExecutorFunc(func(context.Context, *plugin.Plugin, string) plugin.Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return plugin.Ok("done")
		}),
	})

	h := NewHost(d)
	h.SetConcurrency(2)

	reqs := make([]Request, 4)
	for i := range reqs {
		reqs[i] = Request{ID: strings.Repeat("r", i+1), Type: TypeExecutePlugin, PluginID: "slow"}
	}
	in := frames(t, reqs...)

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- h.Serve(context.Background(), in, &out) }()

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), peak.Load())
	assert.Len(t, readAll(t, &out), 4)
}

func TestHostReplacesOversizedResponse(t *testing.T) {
	d, _ := newTestDispatcher(nil)
	d.Registry.Register(plugin.Plugin{
		ID:      "huge",
		Enabled: true,
		Executor: plugin.ExecutorFunc(func(context.Context, *plugin.Plugin, string) plugin.Result {
			return plugin.Ok(strings.Repeat("가", MaxOutgoingMessage))
		}),
	})
	h := NewHost(d)

	in := frames(t, Request{ID: "big", Type: TypeExecutePlugin, PluginID: "huge"})
	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), in, &out))

	resps := readAll(t, &out)
	require.Len(t, resps, 1)
	assert.Equal(t, "big", resps[0].ID)
	assert.False(t, resps[0].Success)
	assert.Equal(t, "응답이 너무 깁니다", resps[0].Error)
}
