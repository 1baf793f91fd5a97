// Package broker implements the chat application's own state machine:
// a pure dispatch from (fd, parsed frame, buf_idx) and room-table state
// to a sequence of reactor calls (spec.md §4.5).
package broker

import (
	"encoding/binary"
	"fmt"

	"github.com/brickingsoft/chatring/internal/frame"
	"github.com/brickingsoft/chatring/internal/logging"
)

// RoomService is the subset of *room.Table the broker needs. Declared
// as an interface so broker tests can run against the real table
// (already OS-agnostic) without pulling in the reactor.
type RoomService interface {
	NextAvailableRoom() int32
	Join(fd int32, roomID int32) error
	Leave(fd int32)
	Members(roomID int32) []int32
	RoomOf(fd int32) (int32, bool)
}

// Dispatcher is how the broker issues outbound work. The reactor
// implements it in terms of prepare_write/prepare_close and the buffer
// pools; tests use a fake that just records calls.
type Dispatcher interface {
	// Reply sends a single frame to fd, owned independently of any
	// incoming buffer slot.
	Reply(fd int32, kind frame.FrameKind, payload []byte)
	// Broadcast sends the same frame to every fd in recipients, sharing
	// one ref-counted outbound buffer across all of them.
	Broadcast(recipients []int32, kind frame.FrameKind, payload []byte)
	// ReleaseBuffer returns the incoming slot bufIdx to the kernel.
	ReleaseBuffer(bufIdx int)
	// CloseClient issues prepare_close(fd).
	CloseClient(fd int32)
}

// Broker holds the room-table dependency; it carries no other state,
// matching spec.md's "pure function ... to a sequence of reactor calls".
type Broker struct {
	rooms RoomService
	log   *logging.Logger
}

// New constructs a Broker over rooms, logging through log.
func New(rooms RoomService, log *logging.Logger) *Broker {
	return &Broker{rooms: rooms, log: log}
}

// Dispatch routes a successfully parsed frame to the matching handler
// (spec.md §4.5).
func (b *Broker) Dispatch(fd int32, f frame.Frame, bufIdx int, d Dispatcher) {
	switch f.Type {
	case frame.KindJoin:
		b.join(fd, f, bufIdx, d)
	case frame.KindLeave:
		b.leave(fd, bufIdx, d)
	case frame.KindChat:
		b.chat(fd, f, bufIdx, d)
	case frame.KindCommand:
		b.command(fd, bufIdx, d)
	default:
		b.unknownType(fd, f, bufIdx, d)
	}
}

// join handles JOIN(fd, payload): the payload's first 4 bytes are a
// little-endian room_id (spec.md §4.5).
func (b *Broker) join(fd int32, f frame.Frame, bufIdx int, d Dispatcher) {
	defer d.ReleaseBuffer(bufIdx)

	if len(f.Data) < 4 {
		d.Reply(fd, frame.KindError, []byte("malformed JOIN payload"))
		return
	}
	roomID := int32(binary.LittleEndian.Uint32(f.Data[:4]))
	if err := b.rooms.Join(fd, roomID); err != nil {
		if b.log != nil {
			b.log.WarnErr("join rejected", err)
		}
		d.Reply(fd, frame.KindError, []byte(err.Error()))
		return
	}
	d.Reply(fd, frame.KindAck, []byte(fmt.Sprintf("Successfully joined session %d", roomID)))
}

// leave handles LEAVE(fd): no broadcast is emitted, matching the
// reference client which never reliably sends one either.
func (b *Broker) leave(fd int32, bufIdx int, d Dispatcher) {
	b.rooms.Leave(fd)
	d.ReleaseBuffer(bufIdx)
}

// chat handles CHAT(fd, payload): fan out a freshly framed SERVER_CHAT
// message to every other member of fd's room.
func (b *Broker) chat(fd int32, f frame.Frame, bufIdx int, d Dispatcher) {
	defer d.ReleaseBuffer(bufIdx)

	roomID, ok := b.rooms.RoomOf(fd)
	if !ok {
		return
	}
	members := b.rooms.Members(roomID)
	recipients := make([]int32, 0, len(members))
	for _, m := range members {
		if m != fd {
			recipients = append(recipients, m)
		}
	}
	if len(recipients) == 0 {
		return
	}
	filtered := frame.FilterChatPayload(f.Data)
	d.Broadcast(recipients, frame.KindServerChat, filtered)
}

// command handles COMMAND frames (SPEC_FULL.md §4.5 supplement): the
// original protocol reserves this type for status-change/whisper
// features the reference client never implements either, so we accept
// the frame as well-formed but reply that it is unsupported rather than
// inventing fan-out semantics for it.
func (b *Broker) command(fd int32, bufIdx int, d Dispatcher) {
	defer d.ReleaseBuffer(bufIdx)
	d.Reply(fd, frame.KindError, []byte("command not supported"))
}

// unknownType handles a frame whose type the parser accepted as
// structurally valid but this broker has no handler for.
func (b *Broker) unknownType(fd int32, f frame.Frame, bufIdx int, d Dispatcher) {
	defer d.ReleaseBuffer(bufIdx)
	if b.log != nil {
		b.log.Warnf("unhandled frame type %s from fd %d", frame.FrameKindName(f.Type), fd)
	}
	d.Reply(fd, frame.KindError, []byte("unsupported frame type"))
}

// HandleParseError handles a frame that failed to parse at all (bad
// header, unknown type byte, bad length): release the buffer and
// optionally tell the client (spec.md §4.5 "Unknown type").
func (b *Broker) HandleParseError(fd int32, bufIdx int, err error, d Dispatcher) {
	defer d.ReleaseBuffer(bufIdx)
	if b.log != nil {
		b.log.WarnErr("frame parse failed", err)
	}
	d.Reply(fd, frame.KindError, []byte(err.Error()))
}

// Disconnect handles a READ completion with res <= 0 (spec.md §4.5):
// leave the room, release the slot if the client owned one, then close.
func (b *Broker) Disconnect(fd int32, bufIdx int, hasBuf bool, d Dispatcher) {
	b.rooms.Leave(fd)
	if hasBuf {
		d.ReleaseBuffer(bufIdx)
	}
	d.CloseClient(fd)
}
