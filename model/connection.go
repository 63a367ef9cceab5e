package model

import "sync"

// ConnectionState is the caller's view of endpoint reachability.
type ConnectionState int

const (
	ConnectionUnknown ConnectionState = iota
	ConnectionConnected
	ConnectionDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectionTracker holds a ConnectionState fed by probes and by the passive
// outcome of real requests.
type ConnectionTracker struct {
	mu    sync.RWMutex
	state ConnectionState
}

func (t *ConnectionTracker) State() ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Report records whether the endpoint was reachable.
func (t *ConnectionTracker) Report(reachable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if reachable {
		t.state = ConnectionConnected
	} else {
		t.state = ConnectionDisconnected
	}
}

// Reset returns to the unprobed state, e.g. after the endpoint changes.
func (t *ConnectionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ConnectionUnknown
}
