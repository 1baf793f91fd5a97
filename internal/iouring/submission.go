//go:build linux

package iouring

import (
	"syscall"
)

// Opcodes (IORING_OP_*). Trimmed to the set the broker's reactor set
// actually issues — accept, recv, write, close, plus nop — out
// of the teacher's full ~60-entry opcode table (splice, connect, openat,
// statx, timeout, poll, epoll, fixed-file variants and friends have no
// SPEC_FULL.md component to drive them).
const (
	OpNop            uint8 = 0
	OpAccept         uint8 = 13
	OpClose          uint8 = 19
	OpWrite          uint8 = 23
	OpRecv           uint8 = 27
	OpProvideBuffers uint8 = 31
	OpRemoveBuffers  uint8 = 32
)

// SQE flags (IOSQE_*).
const (
	SQEFixedFile uint8 = 1 << iota
	SQEIODrain
	SQEIOLink
	SQEIOHardlink
	SQEAsync
	SQEBufferSelect
	SQECQESkipSuccess
)

// Per-opcode ioprio/flags bits.
const (
	AcceptMultishot uint16 = 1 << 0
)

const (
	RecvMultishot uint16 = 1 << 1
)

// SubmissionQueueEntry mirrors struct io_uring_sqe (the 64-byte layout;
// this broker never sets IORING_SETUP_SQE128).
type SubmissionQueueEntry struct {
	OpCode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpcodeFlags uint32
	UserData    uint64
	BufIG       uint16
	Personality uint16
	SpliceFdIn  int32
	Addr3       uint64
	pad2        uint64
}

func (e *SubmissionQueueEntry) prepareRW(opcode uint8, fd int, addr uintptr, length uint32, offset uint64) {
	e.OpCode = opcode
	e.Fd = int32(fd)
	e.Off = offset
	e.Addr = uint64(addr)
	e.Len = length
}

// SetData sets the 64-bit opaque user-data tag that the matching
// completion will carry back unchanged.
func (e *SubmissionQueueEntry) SetData(tag uint64) {
	e.UserData = tag
}

// SetFlags ORs in IOSQE_* bits.
func (e *SubmissionQueueEntry) SetFlags(flags uint8) {
	e.Flags |= flags
}

// PrepareAcceptMultishot issues a multishot accept on the listening
// socket fd (spec.md §4.3 prepare_accept). The kernel keeps producing
// ACCEPT completions, one per new connection, until it omits CQEFMore.
func (e *SubmissionQueueEntry) PrepareAcceptMultishot(fd int) {
	e.prepareRW(OpAccept, fd, 0, 0, 0)
	e.IoPrio |= AcceptMultishot
}

// PrepareRecvMultishot issues a multishot, buffer-select recv against
// buffer group bgid (spec.md §4.3 prepare_read). No buffer address is
// given: the kernel selects a slot from the registered provided-buffer
// ring and reports it via CQEFBuffer in the completion.
func (e *SubmissionQueueEntry) PrepareRecvMultishot(fd int, bgid uint16) {
	e.prepareRW(OpRecv, fd, 0, 0, 0)
	e.IoPrio |= RecvMultishot
	e.SetFlags(SQEBufferSelect)
	e.BufIG = bgid
}

// PrepareWrite issues a write of length bytes starting at buf on fd
// (spec.md §4.3 prepare_write).
func (e *SubmissionQueueEntry) PrepareWrite(fd int, buf uintptr, length uint32) {
	e.prepareRW(OpWrite, fd, buf, length, 0)
}

// PrepareClose issues a close of fd (spec.md §4.3 prepare_close).
func (e *SubmissionQueueEntry) PrepareClose(fd int) {
	e.prepareRW(OpClose, fd, 0, 0, 0)
}

// PrepareNop issues a no-op completion, which exercises the
// submit/peek/advance path without a real fd.
func (e *SubmissionQueueEntry) PrepareNop() {
	e.prepareRW(OpNop, -1, 0, 0, 0)
}

// RawSockaddrAny is re-exported so reactor code preparing an accept
// backlog buffer does not need to import golang.org/x/sys/unix itself.
type RawSockaddrAny = syscall.RawSockaddrAny
