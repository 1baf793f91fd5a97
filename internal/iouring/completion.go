//go:build linux

package iouring

// Completion queue event flags (IORING_CQE_F_*).
const (
	CQEFBuffer uint32 = 1 << iota
	CQEFMore
	CQEFSockNonempty
	CQEFNotify
)

// CQEBufferShift is the bit offset of the selected buffer id within
// CompletionQueueEvent.Flags when CQEFBuffer is set.
const CQEBufferShift = 16

// CompletionQueueEvent mirrors struct io_uring_cqe. UserData carries
// back, bit-exact, whatever 64-bit tag the matching submission set —
// the sole channel of context recovery for a completion (spec.md §4.1).
type CompletionQueueEvent struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// BufferID extracts the kernel-selected provided-buffer index from a
// completion that carries CQEFBuffer.
func (c *CompletionQueueEvent) BufferID() uint16 {
	return uint16(c.Flags >> CQEBufferShift)
}

// More reports whether the multishot operation that produced this
// completion will produce further completions.
func (c *CompletionQueueEvent) More() bool {
	return c.Flags&CQEFMore != 0
}

// HasBuffer reports whether the completion carries a provided-buffer
// selection.
func (c *CompletionQueueEvent) HasBuffer() bool {
	return c.Flags&CQEFBuffer != 0
}
