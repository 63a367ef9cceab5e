package bridge

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lovebug/config"
)

// DefaultConcurrency is how many requests the host works on at once.
const DefaultConcurrency = 4

// Host runs a Dispatcher over a native-messaging connection.
type Host struct {
	dispatcher  *Dispatcher
	concurrency int

	writeMu sync.Mutex
	w       io.Writer

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewHost(d *Dispatcher) *Host {
	return &Host{
		dispatcher:  d,
		concurrency: DefaultConcurrency,
		inflight:    make(map[string]context.CancelFunc),
	}
}

// SetConcurrency changes the request limit. Values below one are ignored.
func (h *Host) SetConcurrency(n int) {
	if n > 0 {
		h.concurrency = n
	}
}

// Serve reads requests from r until EOF and writes responses to w. Requests
// are handled concurrently, at most the concurrency limit at a time; the rest
// wait for a slot. Reading never waits for a slot, so CANCEL reaches running
// and waiting requests alike. Responses of one request keep their order.
// Serve returns once every accepted request has been answered.
func (h *Host) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	h.w = w

	g, gctx := errgroup.WithContext(ctx)
	slots := semaphore.NewWeighted(int64(h.concurrency))

	if config.Debug {
		config.DebugLog.Printf("[Host] serving (concurrency %d)", h.concurrency)
	}

	var readErr error
	for gctx.Err() == nil {
		var req Request
		err := ReadMessage(r, &req)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrInvalidMessage) {
			if config.Debug {
				config.DebugLog.Printf("[Host] %v", err)
			}
			if err := h.write(Response{Type: TypeError, Error: err.Error()}); err != nil {
				readErr = err
				break
			}
			continue
		}
		if err != nil {
			readErr = err
			break
		}

		if req.Type == TypeCancel {
			h.cancel(req)
			continue
		}

		reqCtx, cancel := context.WithCancel(gctx)
		h.track(req.ID, cancel)
		g.Go(func() error {
			defer h.untrack(req.ID, cancel)
			// A request cancelled while waiting still answers, from its
			// cancelled context.
			if err := slots.Acquire(reqCtx, 1); err == nil {
				defer slots.Release(1)
			}
			return h.dispatcher.Handle(reqCtx, req, h.write)
		})
	}

	err := g.Wait()
	if readErr != nil {
		return readErr
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// write serializes frames from concurrent requests. An oversized response
// is replaced by an error for the same request.
func (h *Host) write(resp Response) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	err := WriteMessage(h.w, resp)
	if errors.Is(err, ErrMessageTooLarge) {
		if config.Debug {
			config.DebugLog.Printf("[Host] dropping %s response for %s: %v", resp.Type, resp.ID, err)
		}
		typ := resp.Type
		if typ == TypeChunk || typ == TypeDone {
			typ = TypeError
		}
		return WriteMessage(h.w, Response{ID: resp.ID, Type: typ, Error: "응답이 너무 깁니다", Done: resp.Done})
	}
	return err
}

func (h *Host) track(id string, cancel context.CancelFunc) {
	if id == "" {
		return
	}
	h.mu.Lock()
	h.inflight[id] = cancel
	h.mu.Unlock()
}

func (h *Host) untrack(id string, cancel context.CancelFunc) {
	cancel()
	if id == "" {
		return
	}
	h.mu.Lock()
	delete(h.inflight, id)
	h.mu.Unlock()
}

// cancel stops the request with req.ID. The cancelled request still sends
// its own final response.
func (h *Host) cancel(req Request) {
	h.mu.Lock()
	cancel, ok := h.inflight[req.ID]
	h.mu.Unlock()

	if ok {
		cancel()
	}
	if config.Debug {
		config.DebugLog.Printf("[Host] cancel %s (in flight: %v)", req.ID, ok)
	}
}
