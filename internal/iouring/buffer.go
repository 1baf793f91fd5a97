//go:build linux

package iouring

import (
	"sync/atomic"
	"unsafe"
)

// bufRingEntrySize is the size of one struct io_uring_buf, the
// kernel-visible descriptor (addr, len, bid, tail-encoded-as-next-free)
// for a single provided-buffer ring slot.
var bufRingEntrySize = uint16(unsafe.Sizeof(ringBufEntry{}))

// ringBufEntry mirrors struct io_uring_buf.
type ringBufEntry struct {
	Addr uint64
	Len  uint32
	Bid  uint16
	Tail uint16
}

// BufferRing is the user-mapped header of a provided-buffer ring
// (IORING_BUF_RING). Its address is also the address of entry 0, so it
// doubles as that entry's pointer (spec.md §4.2: "registers the region
// ... as a provided-buffer ring").
type BufferRing struct {
	base unsafe.Pointer
}

func newBufferRing(base unsafe.Pointer) *BufferRing {
	return &BufferRing{base: base}
}

func (br *BufferRing) entryAt(idx uint16) *ringBufEntry {
	return (*ringBufEntry)(unsafe.Add(br.base, uintptr(idx)*uintptr(bufRingEntrySize)))
}

func (br *BufferRing) tailEntry() *ringBufEntry {
	return (*ringBufEntry)(br.base)
}

// BufferRingMask returns the index mask for a power-of-two entry count.
func BufferRingMask(entries uint16) uint16 {
	return entries - 1
}

// Add publishes slot `bid`, located at `addr` and `length` bytes long,
// into ring position (tail+bufOffset)&mask. The kernel will hand this
// slot out on a future buffer-select recv.
func (br *BufferRing) Add(addr uintptr, length uint32, bid uint16, mask uint16, bufOffset uint16, tail uint16) {
	e := br.entryAt((tail + bufOffset) & mask)
	e.Addr = uint64(addr)
	e.Len = length
	e.Bid = bid
}

// Advance makes `count` newly Add-ed entries visible to the kernel by
// bumping the ring's shared tail.
func (br *BufferRing) Advance(count uint16, tail uint16) {
	newTail := tail + count
	// The shared tail is the high half of the 32-bit word whose low half
	// is entry 0's Bid; keep that Bid intact.
	tailWord := (*uint32)(unsafe.Pointer(&br.tailEntry().Bid))
	atomic.StoreUint32(tailWord, uint32(newTail)<<16|uint32(br.tailEntry().Bid))
}

// BufReg mirrors struct io_uring_buf_reg, the argument to
// IORING_REGISTER_PBUF_RING.
type BufReg struct {
	RingAddr    uint64
	RingEntries uint32
	Bgid        uint16
	Pad         uint16
	Resv        [3]uint64
}

// RegisterBufferRing registers a previously mmap'd region as a
// provided-buffer ring under the given buffer group id.
func (r *Ring) RegisterBufferRing(addr unsafe.Pointer, entries uint32, bgid uint16) (*BufferRing, error) {
	reg := &BufReg{
		RingAddr:    uint64(uintptr(addr)),
		RingEntries: entries,
		Bgid:        bgid,
	}
	if _, err := r.doRegister(registerPbufRing, unsafe.Pointer(reg), 1); err != nil {
		return nil, err
	}
	return newBufferRing(addr), nil
}

// UnregisterBufferRing tears down a buffer group previously registered
// with RegisterBufferRing.
func (r *Ring) UnregisterBufferRing(bgid uint16) error {
	reg := &BufReg{Bgid: bgid}
	_, err := r.doRegister(unregisterPbufRing, unsafe.Pointer(reg), 1)
	return err
}
