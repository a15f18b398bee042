package mem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heapBacking allocates a real Go-owned buffer and returns its address as a
// Va_t, so kmallocHeader writes through ptrAt land on memory this test
// process actually owns — mirroring how a real kernel heap sits on real
// backing frames.
func heapBacking(t *testing.T, size int) Va_t {
	t.Helper()
	buf := make([]byte, size)
	return Va_t(uintptr(unsafe.Pointer(&buf[0])))
}

func TestSlabCacheAllocDistinctObjects(t *testing.T) {
	base := heapBacking(t, 1<<MinOrder)
	b := NewBuddy(base, 1<<MinOrder)
	c := NewSlabCache(b, 32)

	a1, ok := c.Alloc()
	require.True(t, ok)
	a2, ok := c.Alloc()
	require.True(t, ok)
	assert.NotEqual(t, a1, a2)
}

func TestSlabCacheFreeReusesObject(t *testing.T) {
	base := heapBacking(t, 1<<MinOrder)
	b := NewBuddy(base, 1<<MinOrder)
	c := NewSlabCache(b, 64)

	a1, ok := c.Alloc()
	require.True(t, ok)
	c.Free(a1)
	a2, ok := c.Alloc()
	require.True(t, ok)
	assert.Equal(t, a1, a2)
}

func TestSlabCacheRejectsOversizeObject(t *testing.T) {
	base := heapBacking(t, 1<<MinOrder)
	b := NewBuddy(base, 1<<MinOrder)
	assert.Panics(t, func() { NewSlabCache(b, 1<<MinOrder+1) })
}

func TestAllocatorKmallocSmallUsesSlab(t *testing.T) {
	base := heapBacking(t, 1<<(MinOrder+4))
	b := NewBuddy(base, 1<<(MinOrder+4))
	a := NewAllocator(b)

	p1, ok := a.Kmalloc(8)
	require.True(t, ok)
	p2, ok := a.Kmalloc(8)
	require.True(t, ok)
	assert.NotEqual(t, p1, p2)
}

func TestAllocatorKmallocLargeUsesBuddy(t *testing.T) {
	base := heapBacking(t, 1<<(MinOrder+4))
	b := NewBuddy(base, 1<<(MinOrder+4))
	a := NewAllocator(b)

	p, ok := a.Kmalloc(3000)
	require.True(t, ok)
	assert.NotZero(t, p)
}

func TestAllocatorKfreeThenReallocSameClass(t *testing.T) {
	base := heapBacking(t, 1<<(MinOrder+4))
	b := NewBuddy(base, 1<<(MinOrder+4))
	a := NewAllocator(b)

	p1, ok := a.Kmalloc(16)
	require.True(t, ok)
	a.Kfree(p1)

	p2, ok := a.Kmalloc(16)
	require.True(t, ok)
	assert.Equal(t, p1, p2)
}
