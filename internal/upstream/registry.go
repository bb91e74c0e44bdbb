package upstream

import (
	"sync"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// Registry maps in-flight transaction ids to a single-shot reply slot
// (§3 "Upstream registry"). At most one slot exists per id at a time;
// the reply reader removes it on delivery, the awaiting caller removes
// it on timeout, and both removals are safe to call redundantly (§4.F
// "Reply reader" idempotent removal).
type Registry struct {
	mu    sync.Mutex
	slots map[uint16]chan dnswire.Answer
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[uint16]chan dnswire.Answer)}
}

// Insert creates and registers a new one-shot slot for id.
func (r *Registry) Insert(id uint16) chan dnswire.Answer {
	ch := make(chan dnswire.Answer, 1)
	r.mu.Lock()
	r.slots[id] = ch
	r.mu.Unlock()
	return ch
}

// Deliver hands answer to the slot registered for its id, if any. It
// reports whether a waiter was found. A missing slot (late reply, or a
// race strategy's abandoned branch) is dropped silently (§4.F).
func (r *Registry) Deliver(id uint16, answer dnswire.Answer) bool {
	r.mu.Lock()
	ch, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- answer:
		return true
	default:
		return false
	}
}

// Remove deletes the slot for id without delivering anything. Safe to
// call after Deliver already removed it.
func (r *Registry) Remove(id uint16) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}
