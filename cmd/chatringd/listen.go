//go:build linux

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenTCP builds a bound, listening IPv4 TCP socket and returns its
// raw file descriptor, grounded on the teacher's NewSocket style
// (pkg/sys/socket.go): a raw syscall.Socket call plus explicit
// SO_REUSEADDR, rather than net.Listen's fd (which would need an extra
// dup through (*net.TCPListener).File()). The accept reactor drives
// this fd directly with a multishot accept SQE.
func listenTCP(host, port string) (int, error) {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return -1, fmt.Errorf("listen: invalid port %q: %w", port, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return -1, fmt.Errorf("listen: cannot resolve host %q", host)
		}
		ip = ips[0]
	}

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		_ = syscall.Close(fd)
		return -1, os.NewSyscallError("setsockopt", err)
	}

	addr := syscall.SockaddrInet4{Port: portNum}
	copy(addr.Addr[:], ip.To4())
	if err := syscall.Bind(fd, &addr); err != nil {
		_ = syscall.Close(fd)
		return -1, os.NewSyscallError("bind", err)
	}
	if err := syscall.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = syscall.Close(fd)
		return -1, os.NewSyscallError("listen", err)
	}
	return fd, nil
}
