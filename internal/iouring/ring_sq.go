//go:build linux

package iouring

import (
	"sync/atomic"
	"unsafe"
)

// GetSQE returns the next free submission queue entry, or nil if the SQ
// is full (spec.md §4.3's "submission backpressure" path: the reactor
// must flush and retry once before treating this as a fatal error for
// the pending operation).
func (r *Ring) GetSQE() *SubmissionQueueEntry {
	sq := &r.sq
	head := atomic.LoadUint32(sq.head)
	next := sq.sqeTail + 1
	if next-head > *sq.ringEntries {
		return nil
	}
	idx := sq.sqeTail & *sq.ringMask
	sqe := (*SubmissionQueueEntry)(unsafe.Add(unsafe.Pointer(sq.sqes), uintptr(idx)*unsafe.Sizeof(SubmissionQueueEntry{})))
	*sqe = SubmissionQueueEntry{}
	sq.sqeTail = next
	return sqe
}

// flushSQ makes every SQE prepared since the last flush visible to the
// kernel by publishing the index array slots and advancing the shared
// tail, then returns the number of entries now pending submission.
func (r *Ring) flushSQ() uint32 {
	sq := &r.sq
	tail := sq.sqeTail
	if sq.sqeHead != tail {
		mask := *sq.ringMask
		for ; sq.sqeHead != tail; sq.sqeHead++ {
			idx := sq.sqeHead & mask
			arraySlot := (*uint32)(unsafe.Add(unsafe.Pointer(sq.array), uintptr(idx)*unsafe.Sizeof(uint32(0))))
			*arraySlot = idx
		}
		atomic.StoreUint32(sq.tail, tail)
	}
	return tail - atomic.LoadUint32(sq.head)
}

// SQReady reports how many prepared SQEs have not yet been submitted.
func (r *Ring) SQReady() uint32 {
	return r.sq.sqeTail - atomic.LoadUint32(r.sq.head)
}
