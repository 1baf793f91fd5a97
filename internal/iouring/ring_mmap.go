//go:build linux

package iouring

import (
	"syscall"
	"unsafe"
)

// mmap(2) offsets for the three regions io_uring_setup's fd exposes,
// per IORING_OFF_SQ_RING / IORING_OFF_CQ_RING / IORING_OFF_SQES.
const (
	offSQRing uint64 = 0
	offCQRing uint64 = 0x8000000
	offSQEs   uint64 = 0x10000000
)

func setupRingPointers(p *Params, sq *SubmissionQueue, cq *CompletionQueue) {
	sq.head = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.Head)))
	sq.tail = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.Tail)))
	sq.ringMask = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.RingMask)))
	sq.ringEntries = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.RingEntries)))
	sq.flags = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.Flags)))
	sq.dropped = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.Dropped)))
	sq.array = (*uint32)(unsafe.Pointer(uintptr(sq.ringPtr) + uintptr(p.SqOff.Array)))

	cq.head = (*uint32)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.Head)))
	cq.tail = (*uint32)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.Tail)))
	cq.ringMask = (*uint32)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.RingMask)))
	cq.ringEntries = (*uint32)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.RingEntries)))
	cq.overflow = (*uint32)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.Overflow)))
	cq.cqes = (*CompletionQueueEvent)(unsafe.Pointer(uintptr(cq.ringPtr) + uintptr(p.CqOff.Cqes)))
}

// mmapRing maps the SQ ring, CQ ring (or reuses the SQ mapping when the
// kernel reports FeatSingleMMap) and the SQE array, then resolves every
// ring pointer via setupRingPointers.
func mmapRing(fd int, p *Params, sq *SubmissionQueue, cq *CompletionQueue) error {
	cqeSize := unsafe.Sizeof(CompletionQueueEvent{})

	sq.ringSize = uint(uintptr(p.SqOff.Array) + uintptr(p.SqEntries)*unsafe.Sizeof(uint32(0)))
	cq.ringSize = uint(uintptr(p.CqOff.Cqes) + uintptr(p.CqEntries)*cqeSize)

	if p.Features&FeatSingleMMap != 0 {
		if cq.ringSize > sq.ringSize {
			sq.ringSize = cq.ringSize
		}
		cq.ringSize = sq.ringSize
	}

	ringPtr, err := mmap(0, uintptr(sq.ringSize), syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(offSQRing))
	if err != nil {
		return err
	}
	sq.ringPtr = ringPtr

	if p.Features&FeatSingleMMap != 0 {
		cq.ringPtr = sq.ringPtr
	} else {
		cq.ringPtr, err = mmap(0, uintptr(cq.ringSize), syscall.PROT_READ|syscall.PROT_WRITE,
			syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(offCQRing))
		if err != nil {
			unmapRing(sq, cq)
			return err
		}
	}

	sqeBytes := unsafe.Sizeof(SubmissionQueueEntry{}) * uintptr(p.SqEntries)
	sqesPtr, err := mmap(0, sqeBytes, syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(offSQEs))
	if err != nil {
		unmapRing(sq, cq)
		return err
	}
	sq.sqes = (*SubmissionQueueEntry)(sqesPtr)

	setupRingPointers(p, sq, cq)
	return nil
}

func unmapRing(sq *SubmissionQueue, cq *CompletionQueue) {
	if sq.ringSize > 0 {
		_ = munmap(uintptr(sq.ringPtr), uintptr(sq.ringSize))
	}
	if cq.ringPtr != nil && cq.ringSize > 0 && cq.ringPtr != sq.ringPtr {
		_ = munmap(uintptr(cq.ringPtr), uintptr(cq.ringSize))
	}
}
