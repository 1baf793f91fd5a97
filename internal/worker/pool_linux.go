//go:build linux

package worker

import (
	"context"
	"runtime"
	"time"

	"github.com/brickingsoft/chatring/internal/broker"
	"github.com/brickingsoft/chatring/internal/bufferpool"
	"github.com/brickingsoft/chatring/internal/config"
	"github.com/brickingsoft/chatring/internal/iouring"
	"github.com/brickingsoft/chatring/internal/logging"
	"github.com/brickingsoft/chatring/internal/reactor"
	"github.com/brickingsoft/chatring/internal/room"
)

// Worker owns one reactor, its disjoint room partition's handoff queue,
// and runs on its own OS thread (spec.md §4.6).
type Worker struct {
	id      int
	reactor *reactor.Reactor
	handoff *Handoff
	log     *logging.Logger
}

// newWorker builds worker id's reactor: its own io_uring instance, its
// own recv buffer pool registered under bufferpool.BufferGroupID, and a
// send arena for outbound fan-out frames.
func newWorker(id int, br reactor.Handler, log *logging.Logger) (*Worker, error) {
	wlog := log.WithReactor("worker")

	ring, err := iouring.New(config.WorkerSQEntries, 0)
	if err != nil {
		return nil, err
	}
	recvPool, err := bufferpool.NewMmapped(ring, config.BufferSlotSize, config.BufferSlotCount, bufferpool.BufferGroupID)
	if err != nil {
		_ = ring.Close()
		return nil, err
	}
	sendArena, err := reactor.NewSendArena(config.BufferSlotSize, config.BufferSlotCount)
	if err != nil {
		_ = ring.Close()
		return nil, err
	}

	react, err := reactor.New(ring, config.WorkerCQEBatchSize, recvPool, sendArena, br, wlog, "worker", bufferpool.BufferGroupID)
	if err != nil {
		_ = ring.Close()
		return nil, err
	}

	return &Worker{id: id, reactor: react, handoff: NewHandoff(config.WorkerSQEntries), log: wlog}, nil
}

// run is the worker's main loop (spec.md §4.6): drain the handoff queue
// and arm a read for each new fd, then peek/dispatch/advance, until ctx
// is done.
func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		for _, fd := range w.handoff.DrainAll() {
			if !w.reactor.PrepareRead(fd) {
				w.log.Errorf("failed to arm initial read for fd %d", fd)
			}
		}

		if err := w.reactor.DrainOnce(); err != nil {
			w.log.ErrorErr("reactor drain failed", err)
			time.Sleep(time.Millisecond)
		}
	}
}

// RoomID returns the pre-allocated room id this worker owns.
func (w *Worker) RoomID() int32 { return int32(w.id) }

// Pool is the full set of workers plus the accept reactor that feeds
// them (spec.md §4.6).
type Pool struct {
	workers []*Worker
	rooms   *room.Table
	accept  *reactor.Reactor
	log     *logging.Logger
}

// NewPool builds n pre-allocated workers (one room each, ids 0..n-1)
// and a dedicated accept reactor that distributes new connections
// across them via next_available_room. The room table and the broker
// dispatching against it are owned here and shared by every reactor,
// so accept-side joins and worker-side chat dispatch see the same
// membership state.
func NewPool(n int, listenFd int, log *logging.Logger) (*Pool, error) {
	rooms := room.NewTable(n)
	br := broker.New(rooms, log)
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		w, err := newWorker(i, br, log)
		if err != nil {
			return nil, err
		}
		workers[i] = w
	}

	acceptRing, err := iouring.New(config.AcceptSQEntries, 0)
	if err != nil {
		return nil, err
	}
	acceptReactor, err := reactor.New(acceptRing, config.AcceptCQEBatchSize, nil, nil, br, log.WithReactor("accept"), "accept", 0)
	if err != nil {
		_ = acceptRing.Close()
		return nil, err
	}

	p := &Pool{workers: workers, rooms: rooms, accept: acceptReactor, log: log}
	acceptReactor.SetOnNewConn(p.onNewConn)

	if !acceptReactor.PrepareAccept(listenFd) {
		return nil, errPrepareAcceptFailed{}
	}
	return p, nil
}

type errPrepareAcceptFailed struct{}

func (errPrepareAcceptFailed) Error() string { return "worker: failed to arm initial accept" }

// onNewConn implements spec.md §4.6's accept-side handoff: pick the
// least-loaded room, join the new fd into it, then push the fd onto
// that room's owning worker's handoff queue so the first read is armed
// on the correct thread before any further input can be processed.
func (p *Pool) onNewConn(fd int32) {
	roomID := p.rooms.NextAvailableRoom()
	if err := p.rooms.Join(fd, roomID); err != nil {
		p.log.WarnErr("join on accept failed", err)
		return
	}
	w := p.workers[roomID]
	if err := w.handoff.Push(fd); err != nil {
		p.log.WarnErr("handoff push failed, dropping connection", err)
		p.rooms.Leave(fd)
	}
}

// Run starts every worker on its own OS-thread-pinned goroutine and
// drives the accept reactor on the calling goroutine until ctx is
// cancelled (spec.md §5: "OS threads, one per reactor").
func (p *Pool) Run(ctx context.Context) {
	for _, w := range p.workers {
		w := w
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			w.run(ctx)
		}()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		default:
		}
		if err := p.accept.DrainOnce(); err != nil {
			p.log.ErrorErr("accept reactor drain failed", err)
			time.Sleep(time.Millisecond)
		}
	}
}

func (p *Pool) shutdown() {
	_ = p.accept.Close()
	for _, w := range p.workers {
		_ = w.reactor.Close()
	}
}
