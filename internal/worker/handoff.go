// Package worker implements the broker's worker pool and accept
// reactor, and the cross-reactor handoff between them (spec.md §4.6).
package worker

import (
	"sync"

	"github.com/eapache/queue"
)

// Handoff is the bounded MPSC queue a worker drains at the top of its
// loop (spec.md §4.6 / SPEC_FULL.md §9 resolved wakeup choice): the
// accept reactor's goroutine pushes newly-joined fds onto a worker's
// Handoff; the owning worker pops them all before its next
// peek/submit_and_wait cycle and arms a fresh read for each. Guarded by
// a mutex since github.com/eapache/queue's Queue is not safe for
// concurrent use on its own.
type Handoff struct {
	mu  sync.Mutex
	q   *queue.Queue
	cap int
}

// ErrFull is returned by Push when the handoff queue is at capacity,
// rather than blocking, since blocking the accept reactor's thread would
// stall every other pending accept. The accept reactor logs the failure
// and removes the fd from its room; it does not retry the push.
type ErrFull struct{}

func (ErrFull) Error() string { return "worker: handoff queue full" }

// NewHandoff creates a handoff queue bounded at capacity entries.
func NewHandoff(capacity int) *Handoff {
	return &Handoff{q: queue.New(), cap: capacity}
}

// Push enqueues fd for the owning worker to pick up. Returns ErrFull if
// the queue is already at capacity.
func (h *Handoff) Push(fd int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() >= h.cap {
		return ErrFull{}
	}
	h.q.Add(fd)
	return nil
}

// DrainAll pops every currently queued fd in FIFO order.
func (h *Handoff) DrainAll() []int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.q.Remove().(int32))
	}
	return out
}

// Len reports how many fds are currently queued.
func (h *Handoff) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.q.Length()
}
