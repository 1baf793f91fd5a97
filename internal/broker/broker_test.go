package broker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickingsoft/chatring/internal/frame"
	"github.com/brickingsoft/chatring/internal/room"
)

type recordedReply struct {
	fd      int32
	kind    frame.FrameKind
	payload string
}

type recordedBroadcast struct {
	recipients []int32
	kind       frame.FrameKind
	payload    string
}

type fakeDispatcher struct {
	replies    []recordedReply
	broadcasts []recordedBroadcast
	released   []int
	closed     []int32
}

func (f *fakeDispatcher) Reply(fd int32, kind frame.FrameKind, payload []byte) {
	f.replies = append(f.replies, recordedReply{fd, kind, string(payload)})
}

func (f *fakeDispatcher) Broadcast(recipients []int32, kind frame.FrameKind, payload []byte) {
	cp := make([]int32, len(recipients))
	copy(cp, recipients)
	f.broadcasts = append(f.broadcasts, recordedBroadcast{cp, kind, string(payload)})
}

func (f *fakeDispatcher) ReleaseBuffer(bufIdx int) { f.released = append(f.released, bufIdx) }
func (f *fakeDispatcher) CloseClient(fd int32)     { f.closed = append(f.closed, fd) }

func joinPayload(roomID int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(roomID))
	return buf
}

// S1: a client JOINs a room and receives an ACK.
func TestScenarioJoinAcks(t *testing.T) {
	tbl := room.NewTable(2)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	f := frame.Frame{Type: frame.KindJoin, Data: joinPayload(0)}
	b.Dispatch(1, f, 7, d)

	require.Len(t, d.replies, 1)
	assert.Equal(t, frame.KindAck, d.replies[0].kind)
	assert.Contains(t, d.replies[0].payload, "Successfully joined session 0")
	assert.Equal(t, []int{7}, d.released)

	roomID, ok := tbl.RoomOf(1)
	require.True(t, ok)
	assert.Equal(t, int32(0), roomID)
}

// S2: joining twice is rejected with an ERROR reply, buffer still released.
func TestScenarioDoubleJoinErrors(t *testing.T) {
	tbl := room.NewTable(2)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(1, frame.Frame{Type: frame.KindJoin, Data: joinPayload(0)}, 1, d)
	b.Dispatch(1, frame.Frame{Type: frame.KindJoin, Data: joinPayload(1)}, 2, d)

	require.Len(t, d.replies, 2)
	assert.Equal(t, frame.KindError, d.replies[1].kind)
	assert.Equal(t, []int{1, 2}, d.released)
}

// S3: LEAVE removes room membership and never broadcasts.
func TestScenarioLeaveNoBroadcast(t *testing.T) {
	tbl := room.NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(1, frame.Frame{Type: frame.KindLeave}, 3, d)

	_, ok := tbl.RoomOf(1)
	assert.False(t, ok)
	assert.Empty(t, d.broadcasts)
	assert.Empty(t, d.replies)
	assert.Equal(t, []int{3}, d.released)
}

// S4: CHAT fans out to every other room member, excluding the sender,
// and filters non-printable bytes from the payload.
func TestScenarioChatFansOutExcludingSender(t *testing.T) {
	tbl := room.NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	require.NoError(t, tbl.Join(2, 0))
	require.NoError(t, tbl.Join(3, 0))
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	payload := append([]byte("hello"), 0x00, 0x07)
	b.Dispatch(1, frame.Frame{Type: frame.KindChat, Data: payload}, 9, d)

	require.Len(t, d.broadcasts, 1)
	bc := d.broadcasts[0]
	assert.ElementsMatch(t, []int32{2, 3}, bc.recipients)
	assert.Equal(t, frame.KindServerChat, bc.kind)
	assert.Equal(t, "hello", bc.payload)
	assert.Equal(t, []int{9}, d.released)
}

// S5: CHAT from a fd not in any room is dropped silently.
func TestScenarioChatFromUnjoinedFdDropped(t *testing.T) {
	tbl := room.NewTable(1)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(42, frame.Frame{Type: frame.KindChat, Data: []byte("hi")}, 4, d)

	assert.Empty(t, d.broadcasts)
	assert.Equal(t, []int{4}, d.released)
}

// CHAT with no other members in the room is dropped without broadcast.
func TestChatAloneInRoomDropped(t *testing.T) {
	tbl := room.NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(1, frame.Frame{Type: frame.KindChat, Data: []byte("hi")}, 5, d)

	assert.Empty(t, d.broadcasts)
	assert.Equal(t, []int{5}, d.released)
}

// S6: COMMAND is accepted as a valid type but replies unsupported.
func TestScenarioCommandUnsupported(t *testing.T) {
	tbl := room.NewTable(1)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(1, frame.Frame{Type: frame.KindCommand, Data: []byte("whisper bob hi")}, 6, d)

	require.Len(t, d.replies, 1)
	assert.Equal(t, frame.KindError, d.replies[0].kind)
	assert.Equal(t, "command not supported", d.replies[0].payload)
	assert.Equal(t, []int{6}, d.released)
}

func TestUnknownTypeRepliesErrorAndReleases(t *testing.T) {
	tbl := room.NewTable(1)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Dispatch(1, frame.Frame{Type: frame.FrameKind(0x99)}, 8, d)

	require.Len(t, d.replies, 1)
	assert.Equal(t, frame.KindError, d.replies[0].kind)
	assert.Equal(t, []int{8}, d.released)
}

func TestParseErrorReleasesAndReplies(t *testing.T) {
	tbl := room.NewTable(1)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.HandleParseError(1, 11, frame.ErrUnknownType, d)

	assert.Equal(t, []int{11}, d.released)
	require.Len(t, d.replies, 1)
	assert.Equal(t, frame.KindError, d.replies[0].kind)
}

// Disconnect: leave, release owned buffer, close.
func TestDisconnectLeavesReleasesAndCloses(t *testing.T) {
	tbl := room.NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Disconnect(1, 2, true, d)

	_, ok := tbl.RoomOf(1)
	assert.False(t, ok)
	assert.Equal(t, []int{2}, d.released)
	assert.Equal(t, []int32{1}, d.closed)
}

// Disconnect without an owned buffer must not call ReleaseBuffer.
func TestDisconnectWithoutBufferSkipsRelease(t *testing.T) {
	tbl := room.NewTable(1)
	b := New(tbl, nil)
	d := &fakeDispatcher{}

	b.Disconnect(5, 0, false, d)

	assert.Empty(t, d.released)
	assert.Equal(t, []int32{5}, d.closed)
}
