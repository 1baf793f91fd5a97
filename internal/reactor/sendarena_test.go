package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendArenaAcquireReleaseRoundTrip(t *testing.T) {
	a, err := NewSendArena(64, 2)
	require.NoError(t, err)

	idx, buf, err := a.Acquire(1, 0)
	require.NoError(t, err)
	assert.Len(t, buf, 64)

	released, err := a.Decrement(idx)
	require.NoError(t, err)
	assert.True(t, released)
}

// invariant 4 at the send-arena level: a k-recipient broadcast's
// increments and decrements balance, releasing exactly on the last one.
func TestSendArenaFanOutBalance(t *testing.T) {
	const k = 4
	a, err := NewSendArena(64, 1)
	require.NoError(t, err)

	idx, _, err := a.Acquire(7, 0)
	require.NoError(t, err)
	for i := 0; i < k; i++ {
		require.NoError(t, a.Increment(idx))
	}

	released := false
	for i := 0; i < k; i++ {
		var derr error
		released, derr = a.Decrement(idx)
		require.NoError(t, derr)
		if i < k-1 {
			assert.False(t, released)
		}
	}
	assert.True(t, released)
}

func TestSendArenaExhaustionErrors(t *testing.T) {
	a, err := NewSendArena(32, 1)
	require.NoError(t, err)

	_, _, err = a.Acquire(1, 0)
	require.NoError(t, err)

	_, _, err = a.Acquire(2, 0)
	assert.ErrorIs(t, err, ErrArenaExhausted)
}

func TestSendArenaSlotReusableAfterRelease(t *testing.T) {
	a, err := NewSendArena(32, 1)
	require.NoError(t, err)

	idx, _, err := a.Acquire(1, 0)
	require.NoError(t, err)
	_, err = a.Decrement(idx)
	require.NoError(t, err)

	idx2, _, err := a.Acquire(2, 0)
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)
}
