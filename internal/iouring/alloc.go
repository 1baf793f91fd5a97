//go:build linux

package iouring

import (
	"syscall"
	"unsafe"
)

// MmapAnon allocates an anonymous, zero-filled region of n bytes
// suitable for handing to RegisterBufferRing — the kernel-shared buffer
// pool's backing store (spec.md §5: "mapped MAP_ANONYMOUS | MAP_PRIVATE").
func MmapAnon(n int) ([]byte, error) {
	ptr, err := mmap(0, uintptr(n), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE, -1, 0)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), n), nil
}

// MunmapAnon releases a region obtained from MmapAnon.
func MunmapAnon(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return munmap(uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)))
}
