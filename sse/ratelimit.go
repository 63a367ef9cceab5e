package sse

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window counter shared by every request of a Client.
// The window restarts on the first call made more than window after the
// current window began.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	count  int
	start  time.Time
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{limit: limit, window: window, now: now}
}

// Allow consumes one slot, reporting false when the window is exhausted.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.start) > r.window {
		r.count = 0
		r.start = now
	}
	if r.count >= r.limit {
		return false
	}
	r.count++
	return true
}

// Remaining returns how many calls the current window still admits.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.now().Sub(r.start) > r.window {
		return r.limit
	}
	return max(r.limit-r.count, 0)
}

// SetLimits changes the limit and window without resetting the counter.
func (r *RateLimiter) SetLimits(limit int, window time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = limit
	r.window = window
}

func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = 0
	r.start = time.Time{}
}
