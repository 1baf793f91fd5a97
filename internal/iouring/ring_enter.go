//go:build linux

package iouring

import (
	"syscall"
)

const sysEnterNr = 426

// Enter flags (IORING_ENTER_*). Only GETEVENTS is used: SQPOLL wakeup
// and the ext-arg timeout path have no SPEC_FULL.md component (the
// broker's worker loop blocks in submit_and_wait with no timeout), so
// their bits are left unnamed here rather than carried as dead consts.
const (
	EnterGetEvents uint32 = 1 << iota
)

// Enter wraps io_uring_enter(2): submits `toSubmit` prepared SQEs and,
// if flags carries EnterGetEvents, blocks until at least `minComplete`
// completions are available.
func (r *Ring) Enter(toSubmit, minComplete, flags uint32) (uint32, error) {
	n, _, errno := syscall.Syscall6(sysEnterNr,
		uintptr(r.fd), uintptr(toSubmit), uintptr(minComplete), uintptr(flags), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return uint32(n), nil
}
