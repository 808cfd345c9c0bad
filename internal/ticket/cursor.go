// Package ticket implements the client-side support-ticket synchronizer:
// the poll cursor map, the notification gate, the cached ticket state, the
// two polling loops, unread counting and the optimistic reply controller.
package ticket

import "sync"

// Cursors is the per-ticket last-observed message count, shared by both
// polling loops. Values are monotonically non-decreasing for the lifetime
// of the session and are never persisted.
type Cursors struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCursors() *Cursors {
	return &Cursors{counts: make(map[string]int)}
}

// Advance records an observed absolute message count and reports whether it
// grew past the stored value. The read-modify-write is atomic, so for any
// interleaving of observers exactly one of them sees growth to a given
// count. Observations below the stored value are ignored.
func (c *Cursors) Advance(ticketID string, count int) (prev int, grew bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev = c.counts[ticketID]
	if count > prev {
		c.counts[ticketID] = count
		return prev, true
	}
	return prev, false
}

// Get returns the stored count for a ticket (zero when never observed).
func (c *Cursors) Get(ticketID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ticketID]
}
