//go:build linux

package reactor

import (
	"time"

	"github.com/brickingsoft/chatring/internal/broker"
	"github.com/brickingsoft/chatring/internal/bufferpool"
	"github.com/brickingsoft/chatring/internal/frame"
	"github.com/brickingsoft/chatring/internal/iouring"
	"github.com/brickingsoft/chatring/internal/logging"
)

// Handler is the subset of *broker.Broker a Reactor drives. Declared as
// an interface so the dispatch loop below names only what it actually
// calls.
type Handler interface {
	Dispatch(fd int32, f frame.Frame, bufIdx int, d broker.Dispatcher)
	HandleParseError(fd int32, bufIdx int, err error, d broker.Dispatcher)
	Disconnect(fd int32, bufIdx int, hasBuf bool, d broker.Dispatcher)
}

// Reactor wraps one io_uring instance, the recv buffer pool it reads
// into, and the send arena it writes out of, and implements spec.md
// §4.3's dispatch-by-op_kind rules against a Handler (normally
// *broker.Broker).
type Reactor struct {
	ring  *iouring.Ring
	recv  *bufferpool.BufferPool
	send  *SendArena
	br    Handler
	log   *logging.Logger
	name  string
	bgid  uint16
	batch []iouring.CompletionQueueEvent

	listenFd  int
	onNewConn func(fd int32)
}

// New constructs a Reactor over ring. cqeBatch bounds how many
// completions are drained per peek/advance cycle (spec.md §4.3). recv
// and send may be nil for a reactor that never issues prepare_read or
// a broker reply/broadcast (the accept reactor only issues
// prepare_accept).
func New(ring *iouring.Ring, cqeBatch int, recv *bufferpool.BufferPool, send *SendArena, br Handler, log *logging.Logger, name string, bgid uint16) (*Reactor, error) {
	return &Reactor{
		ring:  ring,
		recv:  recv,
		send:  send,
		br:    br,
		log:   log,
		name:  name,
		bgid:  bgid,
		batch: make([]iouring.CompletionQueueEvent, cqeBatch),
	}, nil
}

// Close tears down the ring.
func (r *Reactor) Close() error { return r.ring.Close() }

// Fd returns the ring's own file descriptor, for logging.
func (r *Reactor) Fd() int { return r.ring.Fd() }

// SetOnNewConn installs the callback invoked for each fd an ACCEPT
// completion reports (the accept reactor only: spec.md §4.3 "ACCEPT:
// handled only on the accept reactor").
func (r *Reactor) SetOnNewConn(fn func(fd int32)) { r.onNewConn = fn }

func (r *Reactor) getSQE() *iouring.SubmissionQueueEntry {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		// Submission backpressure: flush pending work and retry once
		// (spec.md §4.3); a second failure is the caller's to handle.
		if _, err := r.ring.Submit(); err != nil {
			if r.log != nil {
				r.log.WarnErr("submit during backpressure flush failed", err)
			}
			return nil
		}
		sqe = r.ring.GetSQE()
	}
	return sqe
}

// PrepareAccept arms a multishot accept on listenFd (spec.md §4.3
// prepare_accept): op_kind = ACCEPT, fd = -1, buf_idx = 0.
func (r *Reactor) PrepareAccept(listenFd int) bool {
	sqe := r.getSQE()
	if sqe == nil {
		return false
	}
	r.listenFd = listenFd
	sqe.PrepareAcceptMultishot(listenFd)
	sqe.SetData(frame.EncodeTagFields(-1, frame.OpAccept, 0))
	return true
}

// PrepareRead arms a multishot, buffer-select recv for fd against bgid
// (spec.md §4.3 prepare_read).
func (r *Reactor) PrepareRead(fd int32) bool {
	sqe := r.getSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareRecvMultishot(int(fd), r.bgid)
	sqe.SetData(frame.EncodeTagFields(fd, frame.OpRead, 0))
	return true
}

func (r *Reactor) prepareWrite(fd int32, addr uintptr, length uint32, bufIdx uint16) bool {
	sqe := r.getSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareWrite(int(fd), addr, length)
	sqe.SetData(frame.EncodeTagFields(fd, frame.OpWrite, bufIdx))
	return true
}

// PrepareClose issues prepare_close(fd) (spec.md §4.3 prepare_close).
func (r *Reactor) PrepareClose(fd int32) bool {
	sqe := r.getSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareClose(int(fd))
	sqe.SetData(frame.EncodeTagFields(fd, frame.OpClose, 0))
	return true
}

// Submit flushes pending submissions without waiting.
func (r *Reactor) Submit() error {
	_, err := r.ring.Submit()
	return err
}

// SubmitAndWait flushes pending submissions and blocks for at least n
// completions.
func (r *Reactor) SubmitAndWait(n uint32) error {
	_, err := r.ring.SubmitAndWait(n)
	return err
}

// DrainOnce implements one iteration of spec.md §4.6's worker loop:
// peek completions; if none, submit_and_wait; peek again; dispatch the
// batch; advance. Any work the dispatch prepared (re-armed reads,
// fan-out writes, accept re-arm) is flushed with a final Submit.
func (r *Reactor) DrainOnce() error {
	n := r.ring.PeekBatch(r.batch)
	if n == 0 {
		if err := r.SubmitAndWait(1); err != nil {
			return err
		}
		n = r.ring.PeekBatch(r.batch)
	}
	for i := uint32(0); i < n; i++ {
		r.dispatch(&r.batch[i])
	}
	if n > 0 {
		r.ring.Advance(n)
	}
	return r.Submit()
}

func (r *Reactor) dispatch(cqe *iouring.CompletionQueueEvent) {
	tag := frame.DecodeTag(cqe.UserData)
	switch tag.Kind {
	case frame.OpAccept:
		r.onAccept(cqe)
	case frame.OpRead:
		r.onRead(cqe, tag)
	case frame.OpWrite:
		r.onWrite(tag)
	case frame.OpClose:
		if r.log != nil {
			r.log.Tracef("%s: close completed for fd %d", r.name, tag.Fd)
		}
	default:
		if r.log != nil {
			r.log.Warnf("%s: completion with unrecognized op_kind %d", r.name, tag.Kind)
		}
	}
}

func (r *Reactor) onAccept(cqe *iouring.CompletionQueueEvent) {
	if cqe.Res < 0 {
		if r.log != nil {
			r.log.Errorf("%s: accept failed: res=%d", r.name, cqe.Res)
		}
	} else if r.onNewConn != nil {
		r.onNewConn(cqe.Res)
	}
	if !cqe.More() {
		if !r.PrepareAccept(r.listenFd) && r.log != nil {
			r.log.Errorf("%s: failed to re-arm accept after multishot drop", r.name)
		}
	}
}

func (r *Reactor) onRead(cqe *iouring.CompletionQueueEvent, tag frame.Tag) {
	fd := tag.Fd

	switch {
	case cqe.Res <= 0:
		bufIdx, hasBuf := r.recv.FindSlot(fd)
		r.br.Disconnect(fd, bufIdx, hasBuf, r)
		return
	case !cqe.HasBuffer():
		// Edge case (i): a READ completion without the BUFFER flag must
		// close the client without touching the pool.
		r.br.Disconnect(fd, 0, false, r)
		return
	}

	bid := int(cqe.BufferID())
	if err := r.recv.MarkInUse(bid, fd, uint64(cqe.Res), time.Now().UnixNano()); err != nil {
		if r.log != nil {
			r.log.WarnErr("mark_in_use failed", err)
		}
	} else {
		data := r.recv.SlotBytes(bid, int(cqe.Res))
		f, err := frame.Parse(data, len(data))
		if err != nil {
			r.br.HandleParseError(fd, bid, err, r)
		} else {
			r.br.Dispatch(fd, f, bid, r)
		}
	}

	if !cqe.More() {
		// Edge case (iii): the kernel dropped multishot; re-arm.
		if !r.PrepareRead(fd) && r.log != nil {
			r.log.Errorf("%s: failed to re-arm read for fd %d", r.name, fd)
		}
	}
}

func (r *Reactor) onWrite(tag frame.Tag) {
	if _, err := r.send.Decrement(int(tag.BufIdx)); err != nil && r.log != nil {
		r.log.WarnErr("write completion decrement failed", err)
	}
}

// Reply implements broker.Dispatcher: a single owned outbound frame.
func (r *Reactor) Reply(fd int32, kind frame.FrameKind, payload []byte) {
	idx, buf, err := r.send.Acquire(fd, time.Now().UnixNano())
	if err != nil {
		if r.log != nil {
			r.log.WarnErr("send arena exhausted, dropping reply", err)
		}
		return
	}
	frame.Encode(buf, kind, payload)
	if err := r.send.Increment(idx); err != nil {
		if r.log != nil {
			r.log.WarnErr("send arena increment failed", err)
		}
	}
	if !r.prepareWrite(fd, r.send.SlotAddr(idx), uint32(frame.Size), uint16(idx)) {
		if r.log != nil {
			r.log.Warnf("prepare_write failed for reply to fd %d", fd)
		}
		_, _ = r.send.Decrement(idx)
	}
}

// Broadcast implements broker.Dispatcher: one arena-allocated,
// ref-counted outbound frame shared across every recipient (spec.md
// §4.5 "single arena-allocated frame with ref-counted lifetime").
func (r *Reactor) Broadcast(recipients []int32, kind frame.FrameKind, payload []byte) {
	if len(recipients) == 0 {
		return
	}
	idx, buf, err := r.send.Acquire(recipients[0], time.Now().UnixNano())
	if err != nil {
		if r.log != nil {
			r.log.WarnErr("send arena exhausted, dropping broadcast", err)
		}
		return
	}
	frame.Encode(buf, kind, payload)
	for range recipients {
		if err := r.send.Increment(idx); err != nil && r.log != nil {
			r.log.WarnErr("send arena increment failed", err)
		}
	}
	for _, fd := range recipients {
		if !r.prepareWrite(fd, r.send.SlotAddr(idx), uint32(frame.Size), uint16(idx)) {
			// SQE-exhaustion mid-fan-out (SPEC_FULL.md §9): release this
			// recipient's share of the ref count rather than leak it.
			if r.log != nil {
				r.log.Warnf("prepare_write failed for fd %d mid broadcast, dropping recipient", fd)
			}
			_, _ = r.send.Decrement(idx)
		}
	}
}

// ReleaseBuffer implements broker.Dispatcher: returns a recv slot to
// the kernel's provided-buffer ring.
func (r *Reactor) ReleaseBuffer(bufIdx int) {
	if _, err := r.recv.Release(bufIdx); err != nil && r.log != nil {
		r.log.WarnErr("release recv buffer failed", err)
	}
}

// CloseClient implements broker.Dispatcher: issues prepare_close(fd).
func (r *Reactor) CloseClient(fd int32) {
	if !r.PrepareClose(fd) && r.log != nil {
		r.log.Errorf("%s: failed to prepare_close for fd %d", r.name, fd)
	}
}
