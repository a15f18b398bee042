package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuddyRejectsNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewBuddy(0, 3*(1<<MinOrder)) })
}

func TestNewBuddyRejectsTooSmall(t *testing.T) {
	assert.Panics(t, func() { NewBuddy(0, 1<<(MinOrder-1)) })
}

func TestBuddyAllocExactSize(t *testing.T) {
	b := NewBuddy(0x1000, 1<<MinOrder)
	addr, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	assert.EqualValues(t, 0x1000, addr)

	_, ok = b.Alloc(1 << MinOrder)
	assert.False(t, ok, "heap exhausted after single block taken")
}

func TestBuddyAllocSplitsLargerBlock(t *testing.T) {
	size := 1 << (MinOrder + 2)
	b := NewBuddy(0, size)

	a1, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	a2, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	assert.NotEqual(t, a1, a2)
}

func TestBuddyAllocTooLargeFails(t *testing.T) {
	b := NewBuddy(0, 1<<MinOrder)
	_, ok := b.Alloc(1 << (MaxOrder + 1))
	assert.False(t, ok)
}

func TestBuddyFreeCoalescesBuddies(t *testing.T) {
	size := 1 << (MinOrder + 1)
	b := NewBuddy(0, size)

	a1, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	a2, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)

	b.Free(a1)
	b.Free(a2)

	// the two half-size blocks should have coalesced back into one
	// full-size block, so a single allocation of the whole region succeeds.
	full, ok := b.Alloc(size)
	require.True(t, ok)
	assert.EqualValues(t, 0, full)
}

func TestBuddyFreeUnknownBlockPanics(t *testing.T) {
	b := NewBuddy(0, 1<<MinOrder)
	assert.Panics(t, func() { b.Free(0x9999) })
}

func TestBuddyFreeThenReallocSameAddr(t *testing.T) {
	b := NewBuddy(0, 1<<MinOrder)
	addr, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	b.Free(addr)

	addr2, ok := b.Alloc(1 << MinOrder)
	require.True(t, ok)
	assert.Equal(t, addr, addr2)
}
