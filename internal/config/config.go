// Package config parses the broker's CLI and holds the sizing constants
// the reactor and buffer pool are built from (spec.md §6, SPEC_FULL.md
// §2), grounded on original_source/server/include/IOUringManager.h and
// BufferManager.h's NUM_ENTRIES/CQE_BATCH_SIZE/NUM_BUFFERS constants,
// sized for this Go rewrite's own frame rather than copied outright.
package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Sizing constants. SQEntries/CQEBatchSize are per spec.md §3 Reactor
// ("SQ_ENTRIES = 2048 and CQE_BATCH_SIZE = 256 (worker) / smaller
// (accept)"). BufferSlotCount mirrors BufferManager.h's NUM_BUFFERS.
// BufferSlotSize does NOT mirror BufferManager.h's 8192-byte
// IO_BUFFER_SIZE: every inbound/outbound buffer here holds exactly one
// internal/frame.Frame (515 bytes: 1-byte type + 2-byte length +
// 512-byte payload), so the slot only needs to be the smallest power of
// two at least that large (internal/bufferpool's SlotAddr shift trick
// requires a power-of-two slot size) — 1024, not 8192 or the previous,
// undersized 512. A slot smaller than frame.Size truncates every
// PrepareRecvMultishot completion at the slot boundary and leaves the
// trailing bytes of the frame to arrive as a bogus second completion.
const (
	WorkerSQEntries    = 2048
	WorkerCQEBatchSize = 256

	AcceptSQEntries    = 256
	AcceptCQEBatchSize = 32

	BufferSlotSize  = 1024
	BufferSlotCount = 4096
)

// Config is the broker's fully resolved startup configuration.
type Config struct {
	Host string
	Port string

	// WorkerCount is W = max(1, hw_parallelism - 1) per spec.md §4.6,
	// overridable only for tests.
	WorkerCount int
}

// ErrUsage signals a CLI argument error; callers print usage to stderr
// and exit 1 per spec.md §6.
var ErrUsage = errors.New("config: usage: server <host> <port>")

// ParseArgs parses the `server <host> <port>` CLI (spec.md §6), matching
// original_source/server/main.cpp's two-positional-argument form. args
// excludes the program name (i.e. pass os.Args[1:]).
func ParseArgs(args []string) (Config, error) {
	if len(args) != 2 {
		return Config{}, ErrUsage
	}
	host, port := args[0], args[1]
	if host == "" || port == "" {
		return Config{}, ErrUsage
	}
	return Config{
		Host:        host,
		Port:        port,
		WorkerCount: DefaultWorkerCount(),
	}, nil
}

// DefaultWorkerCount computes W = max(1, hw_parallelism - 1) per
// spec.md §4.6.
func DefaultWorkerCount() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Addr returns the "host:port" dial/listen string.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
