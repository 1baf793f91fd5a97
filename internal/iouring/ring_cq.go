//go:build linux

package iouring

import (
	"sync/atomic"
	"unsafe"
)

// PeekBatch copies up to len(dst) ready completions into dst without
// advancing the CQ head, returning how many were copied. The reactor's
// drain loop (spec.md §4.3 "peek(batch) → k, advance(k)") calls this,
// dispatches the batch, then calls Advance(k).
func (r *Ring) PeekBatch(dst []CompletionQueueEvent) uint32 {
	cq := &r.cq
	tail := atomic.LoadUint32(cq.tail)
	head := *cq.head
	ready := tail - head
	if ready == 0 {
		return 0
	}
	n := uint32(len(dst))
	if n > ready {
		n = ready
	}
	mask := *cq.ringMask
	for i := uint32(0); i < n; i++ {
		idx := (head + i) & mask
		src := (*CompletionQueueEvent)(unsafe.Add(unsafe.Pointer(cq.cqes), uintptr(idx)*unsafe.Sizeof(CompletionQueueEvent{})))
		dst[i] = *src
	}
	return n
}

// Advance releases the first n peeked completions back to the kernel.
func (r *Ring) Advance(n uint32) {
	if n == 0 {
		return
	}
	atomic.StoreUint32(r.cq.head, *r.cq.head+n)
}

// CQReady reports how many completions are waiting, without copying
// them.
func (r *Ring) CQReady() uint32 {
	return atomic.LoadUint32(r.cq.tail) - *r.cq.head
}
