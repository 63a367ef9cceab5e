package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(30, time.Minute, clock.Now)

	for i := 0; i < 30; i++ {
		assert.True(t, rl.Allow(), "call %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, rl.Allow(), "31st call inside the window")
	assert.Equal(t, 0, rl.Remaining())

	// Exactly one window after the start is still the same window.
	clock.Advance(30 * time.Second)
	assert.False(t, rl.Allow())

	clock.Advance(time.Millisecond)
	assert.True(t, rl.Allow())
	assert.Equal(t, 29, rl.Remaining())
}

func TestRateLimiterReset(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(1, time.Minute, clock.Now)

	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	rl.Reset()
	assert.True(t, rl.Allow())
}

func TestRateLimiterIsShared(t *testing.T) {
	rl := NewRateLimiter(50, time.Hour, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
