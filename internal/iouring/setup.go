//go:build linux

package iouring

import (
	"runtime"
	"syscall"
	"unsafe"
)

const sysSetupNr = 425

// sysSetup wraps io_uring_setup(2): allocate the kernel-side rings for
// `entries` submissions and fill params.SqOff/CqOff/Features with the
// layout the kernel chose.
func sysSetup(entries uint32, params *Params) (uintptr, error) {
	fd, _, errno := syscall.Syscall(sysSetupNr, uintptr(entries), uintptr(unsafe.Pointer(params)), 0)
	runtime.KeepAlive(params)
	if errno != 0 {
		return 0, errno
	}
	return fd, nil
}
