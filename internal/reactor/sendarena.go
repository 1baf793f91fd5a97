// Package reactor implements the broker's per-thread event loop
// (spec.md §4.3): the mapping from io_uring completions to buffer-pool
// and room-table operations.
package reactor

import (
	"errors"
	"unsafe"

	"github.com/brickingsoft/chatring/internal/bufferpool"
)

// ErrArenaExhausted is returned by SendArena.Acquire when every slot is
// currently in flight.
var ErrArenaExhausted = errors.New("reactor: send arena exhausted")

// SendArena holds outbound frame buffers for CHAT fan-out: one
// arena-allocated, ref-counted frame per broadcast (spec.md §4.5
// "single arena-allocated frame with ref-counted lifetime"), built on
// the same bufferpool.BufferPool bookkeeping the recv side uses, but
// with its own in-process free list in place of a kernel provided-
// buffer ring (bufferpool.New accepts a nil Publisher for exactly this
// case).
//
// Unlike the recv pool, where the kernel picks the slot, here the
// caller picks: Acquire pops the next free index itself.
type SendArena struct {
	pool    *bufferpool.BufferPool
	free    []int
	memBase uintptr
}

// NewSendArena allocates a slab of slotCount slots of slotSize bytes
// for outbound frames.
func NewSendArena(slotSize uint32, slotCount int) (*SendArena, error) {
	mem := make([]byte, int(slotSize)*slotCount)
	pool, err := bufferpool.New(mem, slotSize, slotCount, nil)
	if err != nil {
		return nil, err
	}
	free := make([]int, slotCount)
	for i := range free {
		free[i] = slotCount - 1 - i
	}
	return &SendArena{pool: pool, free: free, memBase: uintptr(unsafe.Pointer(&mem[0]))}, nil
}

// Acquire reserves the next free slot for fd, returning its index and a
// byte slice view of its full capacity for the caller to encode a frame
// into.
func (a *SendArena) Acquire(fd int32, nowNs int64) (int, []byte, error) {
	if len(a.free) == 0 {
		return 0, nil, ErrArenaExhausted
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	if err := a.pool.MarkInUse(idx, fd, 0, nowNs); err != nil {
		a.free = append(a.free, idx)
		return 0, nil, err
	}
	return idx, a.pool.SlotBytes(idx, int(a.pool.SlotSize())), nil
}

// Increment adds one more outstanding writer against slot idx.
func (a *SendArena) Increment(idx int) error { return a.pool.Increment(idx) }

// Decrement records one writer's completion against slot idx. When the
// count reaches zero the slot is returned to the local free list.
func (a *SendArena) Decrement(idx int) (bool, error) {
	released, err := a.pool.Decrement(idx)
	if released {
		a.free = append(a.free, idx)
	}
	return released, err
}

// SlotAddr returns slot idx's absolute process address, matching what
// the kernel publisher hands io_uring for the recv side (memBase+offset;
// internal/bufferpool/ring_linux.go's KernelPublisher.PublishSlot does
// the same addition).
func (a *SendArena) SlotAddr(idx int) uintptr { return a.memBase + a.pool.SlotAddr(idx) }

// Len returns the arena's total slot count.
func (a *SendArena) Len() int { return a.pool.Len() }
