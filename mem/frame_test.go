package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysmemInitCountsReservedOut(t *testing.T) {
	var p Physmem_t
	avail := []Range{{Start: 0, End: 4 * PGSIZE}}
	reserved := []Range{{Start: PGSIZE, End: 2 * PGSIZE}} // reserve frame index 1
	p.Init(avail, reserved)

	assert.Equal(t, 3, p.Total())
	assert.Equal(t, 3, p.FreeCount())
	assert.Equal(t, 0, p.AllocatedCount())
}

func TestPhysmemAllocFreeConservation(t *testing.T) {
	var p Physmem_t
	avail := []Range{{Start: 0, End: 4 * PGSIZE}}
	p.Init(avail, nil)

	var allocated []Pa_t
	for i := 0; i < 4; i++ {
		pa, ok := p.AllocFrame()
		require.True(t, ok)
		allocated = append(allocated, pa)
	}
	_, ok := p.AllocFrame()
	assert.False(t, ok, "exhausted allocator should fail")
	assert.Equal(t, 0, p.FreeCount())
	assert.Equal(t, 4, p.AllocatedCount())

	for _, pa := range allocated {
		p.FreeFrame(pa)
	}
	assert.Equal(t, p.Total(), p.FreeCount()+p.AllocatedCount())
	assert.Equal(t, 4, p.FreeCount())
}

func TestPhysmemAllocFrameNeverDuplicates(t *testing.T) {
	var p Physmem_t
	avail := []Range{{Start: 0, End: 8 * PGSIZE}}
	p.Init(avail, nil)

	seen := make(map[Pa_t]bool)
	for i := 0; i < 8; i++ {
		pa, ok := p.AllocFrame()
		require.True(t, ok)
		assert.False(t, seen[pa], "frame %#x handed out twice", pa)
		seen[pa] = true
	}
}

func TestPhysmemFreeFrameDoubleFreePanics(t *testing.T) {
	var p Physmem_t
	avail := []Range{{Start: 0, End: PGSIZE}}
	p.Init(avail, nil)

	pa, ok := p.AllocFrame()
	require.True(t, ok)
	p.FreeFrame(pa)
	assert.Panics(t, func() { p.FreeFrame(pa) })
}

func TestPhysmemFreeFrameOutOfRangePanics(t *testing.T) {
	var p Physmem_t
	avail := []Range{{Start: PGSIZE, End: 2 * PGSIZE}}
	p.Init(avail, nil)
	assert.Panics(t, func() { p.FreeFrame(0) })
}

func TestPhysmemInitExcludesUnavailableHoles(t *testing.T) {
	var p Physmem_t
	// two disjoint regions with a hole between them.
	avail := []Range{
		{Start: 0, End: PGSIZE},
		{Start: 3 * PGSIZE, End: 4 * PGSIZE},
	}
	p.Init(avail, nil)

	assert.Equal(t, 2, p.Total())
	assert.Equal(t, 2, p.FreeCount())
}
