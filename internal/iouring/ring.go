//go:build linux

package iouring

import (
	"errors"
	"syscall"
	"unsafe"
)

// MaxEntries bounds the SQ/CQ entry count the same way the kernel clamps
// IORING_MAX_ENTRIES.
const MaxEntries = 32768

// SubmissionQueue is the user-space view of the kernel-mmap'd submission
// ring: a head/tail pair the kernel and the application each move from
// their own side, an index array, and the backing SQE array.
type SubmissionQueue struct {
	head        *uint32
	tail        *uint32
	ringMask    *uint32
	ringEntries *uint32
	flags       *uint32
	dropped     *uint32
	array       *uint32
	sqes        *SubmissionQueueEntry
	ringSize    uint
	ringPtr     unsafe.Pointer
	sqeHead     uint32
	sqeTail     uint32
}

// CompletionQueue is the user-space view of the kernel-mmap'd completion
// ring.
type CompletionQueue struct {
	head        *uint32
	tail        *uint32
	ringMask    *uint32
	ringEntries *uint32
	overflow    *uint32
	cqes        *CompletionQueueEvent
	ringSize    uint
	ringPtr     unsafe.Pointer
}

// Ring owns one io_uring instance: its file descriptor and the two
// mmap'd queues. Every reactor in this broker (the accept reactor and
// each worker reactor) owns exactly one Ring, never shared across
// threads.
type Ring struct {
	sq       SubmissionQueue
	cq       CompletionQueue
	flags    uint32
	features uint32
	fd       int
}

// New creates and mmaps a ring with the given SQ entry count (rounded up
// to a power of two by the kernel) and setup flags.
func New(entries uint32, flags uint32) (*Ring, error) {
	if entries == 0 || entries > MaxEntries {
		return nil, errors.New("iouring: entries out of range")
	}

	params := &Params{Flags: flags}
	fd, err := sysSetup(entries, params)
	if err != nil {
		return nil, err
	}

	ring := &Ring{fd: int(fd), flags: params.Flags, features: params.Features}
	if err := mmapRing(ring.fd, params, &ring.sq, &ring.cq); err != nil {
		_ = syscall.Close(ring.fd)
		return nil, err
	}
	return ring, nil
}

// Close unmaps both rings and closes the ring file descriptor.
func (r *Ring) Close() error {
	sqeBytes := unsafe.Sizeof(SubmissionQueueEntry{}) * uintptr(*r.sq.ringEntries)
	_ = munmap(uintptr(unsafe.Pointer(r.sq.sqes)), sqeBytes)
	unmapRing(&r.sq, &r.cq)
	return syscall.Close(r.fd)
}

// Fd returns the ring's own file descriptor (for logging only; never
// shared with another thread's ring).
func (r *Ring) Fd() int { return r.fd }
