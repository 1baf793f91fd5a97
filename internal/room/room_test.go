package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAvailableRoomPrefersFewestThenSmallestID(t *testing.T) {
	tbl := NewTable(3)
	require.NoError(t, tbl.Join(1, 0))
	require.NoError(t, tbl.Join(2, 0))
	assert.Equal(t, int32(1), tbl.NextAvailableRoom())
}

func TestJoinRejectsDoubleAssignment(t *testing.T) {
	tbl := NewTable(2)
	require.NoError(t, tbl.Join(5, 0))
	err := tbl.Join(5, 1)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

// invariant 3: a client fd appears in exactly one room's member set.
func TestFdAppearsInExactlyOneRoom(t *testing.T) {
	tbl := NewTable(3)
	require.NoError(t, tbl.Join(9, 2))
	for id := int32(0); id < 3; id++ {
		members := tbl.Members(id)
		found := false
		for _, m := range members {
			if m == 9 {
				found = true
			}
		}
		if id == 2 {
			assert.True(t, found)
		} else {
			assert.False(t, found)
		}
	}
	roomID, ok := tbl.RoomOf(9)
	require.True(t, ok)
	assert.Equal(t, int32(2), roomID)
}

// invariant 7: leave on an unjoined fd is a no-op.
func TestLeaveUnjoinedFdIsNoOp(t *testing.T) {
	tbl := NewTable(1)
	tbl.Leave(123) // must not panic
	_, ok := tbl.RoomOf(123)
	assert.False(t, ok)
}

func TestLeaveDoesNotDestroyEmptyRoom(t *testing.T) {
	tbl := NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	tbl.Leave(1)
	assert.Equal(t, []int32{}, tbl.Members(0))
}

func TestMembersReturnsCopyNotAlias(t *testing.T) {
	tbl := NewTable(1)
	require.NoError(t, tbl.Join(1, 0))
	members := tbl.Members(0)
	members[0] = 999
	assert.Equal(t, []int32{1}, tbl.Members(0))
}
