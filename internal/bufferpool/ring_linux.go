//go:build linux

package bufferpool

import (
	"unsafe"

	"github.com/brickingsoft/chatring/internal/iouring"
)

// BufferGroupID is the buffer group id every worker reactor registers
// its pool under (spec.md §3 Reactor: "registered under buffer group
// id 1").
const BufferGroupID = 1

// KernelPublisher adapts an *iouring.Ring + *iouring.BufferRing pair to
// the Publisher interface BufferPool needs to hand slots back to the
// kernel.
type KernelPublisher struct {
	ring    *iouring.BufferRing
	mask    uint16
	tail    uint16
	memBase uintptr
}

// newKernelPublisher's tail starts at entries: NewMmapped seeds every
// slot (advancing the ring tail to entries) before the first publish.
func newKernelPublisher(br *iouring.BufferRing, entries uint16, memBase uintptr) *KernelPublisher {
	return &KernelPublisher{ring: br, mask: iouring.BufferRingMask(entries), tail: entries, memBase: memBase}
}

// PublishSlot implements Publisher by calling the kernel buffer-ring
// Add+Advance pair for a single freshly-freed slot.
func (k *KernelPublisher) PublishSlot(idx uint16, addr uintptr, length uint32) {
	k.ring.Add(k.memBase+addr, length, idx, k.mask, 0, k.tail)
	k.tail++
	k.ring.Advance(1, k.tail-1)
}

// NewMmapped allocates the pool's backing memory with an anonymous
// mmap, registers it with the kernel ring as a provided-buffer ring
// under bgid, and seeds every slot into the ring (spec.md §4.2
// Contract). slotCount must be a power of two.
func NewMmapped(ring *iouring.Ring, slotSize uint32, slotCount int, bgid uint16) (*BufferPool, error) {
	total := slotCount * int(slotSize)
	mem, err := iouring.MmapAnon(total)
	if err != nil {
		return nil, err
	}

	br, err := ring.RegisterBufferRing(unsafe.Pointer(&mem[0]), uint32(slotCount), bgid)
	if err != nil {
		_ = iouring.MunmapAnon(mem)
		return nil, err
	}

	pub := newKernelPublisher(br, uint16(slotCount), uintptr(unsafe.Pointer(&mem[0])))
	pool, err := New(mem, slotSize, slotCount, pub)
	if err != nil {
		return nil, err
	}

	mask := iouring.BufferRingMask(uint16(slotCount))
	for i := 0; i < slotCount; i++ {
		br.Add(uintptr(unsafe.Pointer(&mem[0]))+pool.SlotAddr(i), slotSize, uint16(i), mask, uint16(i), 0)
	}
	br.Advance(uint16(slotCount), 0)

	return pool, nil
}
