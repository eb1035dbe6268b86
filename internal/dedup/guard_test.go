package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard() (*MemoryGuard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryGuard(time.Hour, WithClock(clock.Now)), clock
}

func TestMemoryGuard_SuppressesWithinWindow(t *testing.T) {
	g, clock := newTestGuard()

	assert.True(t, g.ShouldSend("ORD1"))
	g.MarkSent("ORD1")

	assert.False(t, g.ShouldSend("ORD1"))
	clock.Advance(59 * time.Minute)
	assert.False(t, g.ShouldSend("ORD1"))

	assert.True(t, g.ShouldSend("ORD2"))
}

func TestMemoryGuard_ExpiresAfterTTL(t *testing.T) {
	g, clock := newTestGuard()

	g.MarkSent("ORD1")
	clock.Advance(time.Hour + time.Second)

	assert.True(t, g.ShouldSend("ORD1"))
	assert.Equal(t, 0, g.Len())
}

func TestMemoryGuard_SweepsAllExpiredEntries(t *testing.T) {
	g, clock := newTestGuard()

	g.MarkSent("ORD1")
	g.MarkSent("ORD2")
	clock.Advance(30 * time.Minute)
	g.MarkSent("ORD3")
	clock.Advance(31 * time.Minute)

	assert.True(t, g.ShouldSend("ORD9"))
	assert.Equal(t, 1, g.Len())
	assert.False(t, g.ShouldSend("ORD3"))
}

func TestMemoryGuard_CheckWithoutMarkDoesNotSuppress(t *testing.T) {
	g, _ := newTestGuard()

	assert.True(t, g.ShouldSend("ORD1"))
	assert.True(t, g.ShouldSend("ORD1"))
}

func TestNewMemoryGuard_DefaultTTL(t *testing.T) {
	g := NewMemoryGuard(0)
	assert.Equal(t, DefaultTTL, g.ttl)
}

func TestMemoryGuard_Concurrent(t *testing.T) {
	g, _ := newTestGuard()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldSend("ORD1") {
				g.MarkSent("ORD1")
			}
		}()
	}
	wg.Wait()

	assert.False(t, g.ShouldSend("ORD1"))
	assert.Equal(t, 1, g.Len())
}
