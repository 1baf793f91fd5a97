package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []uint16
}

func (f *fakePublisher) PublishSlot(idx uint16, addr uintptr, length uint32) {
	f.published = append(f.published, idx)
}

func newTestPool(t *testing.T, slotSize uint32, slots int) (*BufferPool, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	mem := make([]byte, int(slotSize)*slots)
	p, err := New(mem, slotSize, slots, pub)
	require.NoError(t, err)
	return p, pub
}

func TestNewRejectsNonPow2SlotSize(t *testing.T) {
	_, err := New(make([]byte, 300), 100, 3, nil)
	assert.ErrorIs(t, err, ErrSlotSizeNotPow2)
}

func TestSlotAddrUsesShift(t *testing.T) {
	p, _ := newTestPool(t, 512, 4)
	assert.Equal(t, uintptr(0), p.SlotAddr(0))
	assert.Equal(t, uintptr(512), p.SlotAddr(1))
	assert.Equal(t, uintptr(1536), p.SlotAddr(3))
}

func TestMarkInUseThenReleaseRoundTrip(t *testing.T) {
	p, pub := newTestPool(t, 512, 4)
	require.NoError(t, p.MarkInUse(0, 7, 100, 1))

	idx, ok := p.FindSlot(7)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	released, err := p.Release(0)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, []uint16{0}, pub.published)

	_, ok = p.FindSlot(7)
	assert.False(t, ok)
}

// invariant 1: in_use == false implies ref_count == 0.
func TestInUseFalseImpliesRefCountZero(t *testing.T) {
	p, _ := newTestPool(t, 512, 1)
	require.NoError(t, p.MarkInUse(0, 1, 10, 1))
	require.NoError(t, p.Increment(0))
	require.NoError(t, p.Increment(0))

	released, err := p.Release(0)
	require.NoError(t, err)
	assert.False(t, released, "slot with ref_count > 0 must not release")

	done, err := p.Decrement(0)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = p.Decrement(0)
	require.NoError(t, err)
	assert.True(t, done)

	slot, err := p.Slot(0)
	require.NoError(t, err)
	assert.False(t, slot.InUse)
	assert.Equal(t, uint32(0), slot.RefCount)
}

// invariant 6: release is idempotent on an already-free slot.
func TestReleaseIdempotentOnFreeSlot(t *testing.T) {
	p, pub := newTestPool(t, 512, 1)
	released, err := p.Release(0)
	require.NoError(t, err)
	assert.False(t, released)
	assert.Empty(t, pub.published)
}

// invariant 4 (fan-out bookkeeping): sum of increments equals sum of
// decrements equals k for a k-recipient broadcast.
func TestFanOutIncrementDecrementBalance(t *testing.T) {
	const k = 5
	p, _ := newTestPool(t, 512, 1)
	require.NoError(t, p.MarkInUse(0, 1, 10, 1))
	for i := 0; i < k; i++ {
		require.NoError(t, p.Increment(0))
	}
	released := false
	for i := 0; i < k; i++ {
		var err error
		released, err = p.Decrement(0)
		require.NoError(t, err)
	}
	assert.True(t, released, "last decrement of k must release the slot")
}

func TestSlotBytesTruncatesToSlotSize(t *testing.T) {
	p, _ := newTestPool(t, 16, 2)
	b := p.SlotBytes(0, 1000)
	assert.Len(t, b, 16)
}

func TestStatsTracksHighWaterMark(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	require.NoError(t, p.MarkInUse(0, 1, 0, 0))
	require.NoError(t, p.MarkInUse(1, 2, 0, 0))
	require.NoError(t, p.MarkInUse(2, 3, 0, 0))
	_, _ = p.Release(0)

	stats := p.Stats()
	assert.Equal(t, uint64(3), stats.TotalAcquired)
	assert.Equal(t, uint64(1), stats.TotalReleased)
	assert.Equal(t, uint64(3), stats.HighWaterMark)
}

func TestBadSlotIndexErrors(t *testing.T) {
	p, _ := newTestPool(t, 16, 2)
	_, err := p.Slot(5)
	assert.ErrorIs(t, err, ErrBadSlot)
	_, err = p.Release(-1)
	assert.ErrorIs(t, err, ErrBadSlot)
}
