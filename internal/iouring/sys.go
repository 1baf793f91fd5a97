//go:build linux

package iouring

import (
	"syscall"
	"unsafe"
)

// Raw mmap/munmap/madvise wrappers. Neither golang.org/x/sys/unix nor any
// other pack dependency exposes a typed mmap(2) that hands back a raw
// pointer suitable for overlaying the SQ/CQ ring structs directly (the
// stdlib's syscall.Mmap copies into a []byte, which would break the
// pointer arithmetic the ring layout depends on) — every binding package
// in the pack (pkg/iouring, pkg/liburing) reaches for the bare syscall
// for exactly this reason, so we do the same.
func mmap(addr, length uintptr, prot, flags, fd int, offset int64) (unsafe.Pointer, error) {
	r0, _, errno := syscall.Syscall6(syscall.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return nil, errno
	}
	return unsafe.Pointer(r0), nil
}

func munmap(addr, length uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func madvise(addr, length uintptr, advice int) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE, addr, length, uintptr(advice))
	if errno != 0 {
		return errno
	}
	return nil
}
