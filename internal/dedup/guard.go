// Package dedup keeps confirmation emails to one per order within a
// time window.
//
// The guard is process local. Entries are lost on restart and two
// deliveries racing between ShouldSend and MarkSent can both pass; the
// gateway already collapses most retries so a rare duplicate is accepted.
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long a sent confirmation suppresses duplicates.
const DefaultTTL = time.Hour

// Guard decides whether a confirmation may be sent for an order.
type Guard interface {
	ShouldSend(orderID string) bool
	MarkSent(orderID string)
}

// MemoryGuard is an in-memory Guard with lazy expiry.
type MemoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

type Option func(*MemoryGuard)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *MemoryGuard) {
		g.now = now
	}
}

// NewMemoryGuard creates a guard; a non-positive ttl means DefaultTTL.
func NewMemoryGuard(ttl time.Duration, opts ...Option) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &MemoryGuard{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldSend sweeps expired entries, then reports whether orderID has no
// live entry.
func (g *MemoryGuard) ShouldSend(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictLocked()
	_, sent := g.entries[orderID]
	return !sent
}

// MarkSent records that a confirmation went out for orderID.
func (g *MemoryGuard) MarkSent(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries[orderID] = g.now()
}

// Len returns the number of entries, expired or not.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *MemoryGuard) evictLocked() {
	cutoff := g.now().Add(-g.ttl)
	for id, sentAt := range g.entries {
		if sentAt.Before(cutoff) {
			delete(g.entries, id)
		}
	}
}
