package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(limit, window)
	l.now = clock.Now
	return l, clock
}

func TestRateLimiter_RejectsAfterCeiling(t *testing.T) {
	l, clock := newTestLimiter(5, time.Hour)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Admit("1.1.1.1"), "request %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, l.Admit("1.1.1.1"))
	// rejected requests do not extend the window
	assert.Len(t, l.hits["1.1.1.1"], 5)

	// other clients have their own window
	assert.True(t, l.Admit("2.2.2.2"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	assert.True(t, l.Admit("c"))
	clock.Advance(30 * time.Second)
	assert.True(t, l.Admit("c"))
	assert.False(t, l.Admit("c"))

	// first admission ages out
	clock.Advance(30 * time.Second)
	assert.True(t, l.Admit("c"))
	assert.False(t, l.Admit("c"))

	// after a full window everything is available again
	clock.Advance(time.Minute)
	assert.True(t, l.Admit("c"))
	assert.True(t, l.Admit("c"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	l.Admit("a")
	clock.Advance(50 * time.Second)
	l.Admit("b")
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.NotContains(t, l.hits, "a")
	assert.Contains(t, l.hits, "b")
}
