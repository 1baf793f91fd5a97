package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffDrainsInFIFOOrder(t *testing.T) {
	h := NewHandoff(4)
	require.NoError(t, h.Push(1))
	require.NoError(t, h.Push(2))
	require.NoError(t, h.Push(3))

	assert.Equal(t, []int32{1, 2, 3}, h.DrainAll())
	assert.Equal(t, 0, h.Len())
}

func TestHandoffDrainEmptyReturnsNil(t *testing.T) {
	h := NewHandoff(4)
	assert.Nil(t, h.DrainAll())
}

func TestHandoffRejectsPushPastCapacity(t *testing.T) {
	h := NewHandoff(2)
	require.NoError(t, h.Push(1))
	require.NoError(t, h.Push(2))
	err := h.Push(3)
	assert.ErrorIs(t, err, ErrFull{})
}
