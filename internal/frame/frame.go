package frame

import (
	"encoding/binary"
	"errors"
)

// FrameKind is the wire frame's `type` byte (spec.md §3).
type FrameKind uint8

const (
	// Server-side (broker → client).
	KindAck          FrameKind = 0x01
	KindError        FrameKind = 0x02
	KindServerChat   FrameKind = 0x03
	KindNotification FrameKind = 0x04

	// Client-side (client → broker).
	KindJoin    FrameKind = 0x11
	KindLeave   FrameKind = 0x12
	KindChat    FrameKind = 0x13
	KindCommand FrameKind = 0x14
)

// MaxPayload is the fixed payload capacity of a frame (spec.md §3).
const MaxPayload = 512

// Size is the total wire size of a frame: 1-byte type, 2-byte length,
// 512-byte payload area.
const Size = 1 + 2 + MaxPayload

// FrameKindName returns a human-readable name for logging.
func FrameKindName(k FrameKind) string {
	switch k {
	case KindAck:
		return "ACK"
	case KindError:
		return "ERROR"
	case KindServerChat:
		return "SERVER_CHAT"
	case KindNotification:
		return "NOTIFICATION"
	case KindJoin:
		return "JOIN"
	case KindLeave:
		return "LEAVE"
	case KindChat:
		return "CHAT"
	case KindCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// ErrTooShort, ErrUnknownType, ErrLength are the parse-failure variants
// spec.md §4.1 requires: the reactor turns any of them into "release
// buffer, do not propagate" plus an optional ERROR reply.
var (
	ErrTooShort    = errors.New("frame: fewer than 3 header bytes")
	ErrUnknownType = errors.New("frame: unknown type byte")
	ErrLength      = errors.New("frame: invalid length field")
)

// Frame is a parsed wire frame.
type Frame struct {
	Type   FrameKind
	Length uint16
	Data   []byte // length Length, aliases no buffer beyond the header
}

// Parse validates and decodes the first n bytes of buf as a frame header
// plus payload, per spec.md §4.1:
//   - n must be at least 3 (type + length).
//   - type must be one of the known kinds.
//   - length must be ≤ 512.
//   - length must be nonzero, except for LEAVE (whose payload is unused).
func Parse(buf []byte, n int) (Frame, error) {
	if n < 3 {
		return Frame{}, ErrTooShort
	}
	kind := FrameKind(buf[0])
	if !knownKind(kind) {
		return Frame{}, ErrUnknownType
	}
	length := binary.LittleEndian.Uint16(buf[1:3])
	if length > MaxPayload {
		return Frame{}, ErrLength
	}
	if length == 0 && kind != KindLeave {
		return Frame{}, ErrLength
	}
	available := n - 3
	if int(length) > available {
		length = uint16(available)
	}
	return Frame{Type: kind, Length: length, Data: buf[3 : 3+int(length)]}, nil
}

func knownKind(k FrameKind) bool {
	switch k {
	case KindAck, KindError, KindServerChat, KindNotification,
		KindJoin, KindLeave, KindChat, KindCommand:
		return true
	default:
		return false
	}
}

// Encode writes a frame's wire representation (type, length, payload,
// zero-padded to Size) into dst, which must be at least Size bytes.
// Returns the number of bytes actually meaningful on the wire (3+len(payload));
// callers writing to a socket may send only that prefix.
func Encode(dst []byte, kind FrameKind, payload []byte) int {
	if len(payload) > MaxPayload {
		payload = payload[:MaxPayload]
	}
	dst[0] = byte(kind)
	binary.LittleEndian.PutUint16(dst[1:3], uint16(len(payload)))
	n := copy(dst[3:], payload)
	clear(dst[3+n : Size])
	return 3 + len(payload)
}

// FilterChatPayload strips non-printable bytes from a chat payload
// before broadcast (spec.md §4.1): any byte that is not `\n`, `\r`,
// `\t`, a printable ASCII byte, or part of a UTF-8 continuation
// sequence (byte ≥ 128) is dropped.
func FilterChatPayload(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		if b >= 128 || b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			out = append(out, b)
		}
	}
	return out
}
