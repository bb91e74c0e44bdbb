package upstream

import "sync"

// idWrapBound is the point at which the transaction id allocator wraps
// back to zero, leaving a 10000-id margin so ids recently retired by a
// timed-out request cannot collide with a freshly allocated one within
// the outstanding-request window (§3 "Upstream registry", §4.F "Id wrap
// safety").
const idWrapBound = 1<<16 - 10000

// IDAllocator hands out transaction ids for outbound upstream queries,
// wrapping at idWrapBound. It does not itself guarantee uniqueness
// against ids still in flight; the spec accepts collisions within
// 10000 outstanding requests as not happening by construction.
type IDAllocator struct {
	mu   sync.Mutex
	next uint16
}

// NewIDAllocator returns an allocator starting at 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next transaction id and advances the counter.
func (a *IDAllocator) Next() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	if a.next >= idWrapBound {
		a.next = 0
	}
	return id
}
