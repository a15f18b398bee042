package mem

import "sync"

// SlabCache serves fixed-size objects out of buddy-allocated pages, the
// layer spec §2 describes as "slab caches layered on top" of the buddy
// allocator. Each cache owns one object size; exhausted slabs pull a fresh
// order-12 (one page) block from the backing Buddy.
type SlabCache struct {
	sync.Mutex
	objSize int
	backing *Buddy
	free    []Va_t
}

// NewSlabCache creates a cache for objects of the given size, backed by b.
func NewSlabCache(b *Buddy, objSize int) *SlabCache {
	if objSize <= 0 || objSize > 1<<MinOrder {
		panic("slab: objSize must fit in one page")
	}
	return &SlabCache{objSize: objSize, backing: b}
}

// grow pulls one page from the backing buddy allocator and carves it into
// objSize chunks, pushing them onto the free list.
func (c *SlabCache) grow() bool {
	page, ok := c.backing.Alloc(1 << MinOrder)
	if !ok {
		return false
	}
	n := (1 << MinOrder) / c.objSize
	for i := 0; i < n; i++ {
		c.free = append(c.free, page+Va_t(i*c.objSize))
	}
	return true
}

// Alloc returns one object, growing the cache if its free list is empty.
func (c *SlabCache) Alloc() (Va_t, bool) {
	c.Lock()
	defer c.Unlock()
	if len(c.free) == 0 {
		if !c.grow() {
			return 0, false
		}
	}
	n := len(c.free)
	addr := c.free[n-1]
	c.free = c.free[:n-1]
	return addr, true
}

// Free returns obj to the cache's free list. Slabs are never returned to
// the buddy allocator (no defragmentation pass — matches the Non-goal
// "demand paging from disk, swap" in spirit: this kernel favors simplicity
// over memory reclaim precision for small objects).
func (c *SlabCache) Free(obj Va_t) {
	c.Lock()
	defer c.Unlock()
	c.free = append(c.free, obj)
}

// kmallocHeader precedes every kmalloc'd block so Kfree can recover which
// slab (or, for large requests, which buddy order) it came from without the
// caller tracking size (spec §2 "kmalloc").
type kmallocHeader struct {
	cache *SlabCache // nil if this was a direct buddy allocation
	order int        // valid only when cache == nil
	size  uintptr
}

const headerSize = uintptr(16) // rounded up for alignment; see Kmalloc

// Allocator is the kmalloc front-end: small requests go to a size-classed
// slab cache, larger ones go straight to the buddy allocator.
type Allocator struct {
	buddy  *Buddy
	slabs  []*SlabCache // indexed by size class
	classes []int
}

// Standard kmalloc size classes (spec leaves exact classes unspecified;
// chosen to match common small-object sizes: TCB/PCB-sized structs, path
// buffers, pipe headers).
var defaultClasses = []int{16, 32, 64, 128, 256, 512, 1024, 2048}

// NewAllocator builds a kmalloc front end over buddy.
func NewAllocator(buddy *Buddy) *Allocator {
	a := &Allocator{buddy: buddy, classes: defaultClasses}
	for _, sz := range a.classes {
		a.slabs = append(a.slabs, NewSlabCache(buddy, sz))
	}
	return a
}

func (a *Allocator) classFor(size uintptr) (*SlabCache, int) {
	for i, sz := range a.classes {
		if size <= uintptr(sz) {
			return a.slabs[i], sz
		}
	}
	return nil, 0
}

// Kmalloc allocates at least size bytes, prefixed by a kmallocHeader the
// caller never sees (the returned address is past the header).
func (a *Allocator) Kmalloc(size uintptr) (Va_t, bool) {
	total := size + headerSize
	if cache, _ := a.classFor(total); cache != nil {
		addr, ok := cache.Alloc()
		if !ok {
			return 0, false
		}
		hdr := (*kmallocHeader)(ptrAt(addr))
		*hdr = kmallocHeader{cache: cache, size: size}
		return addr + Va_t(headerSize), true
	}
	order := orderOf(int(total))
	addr, ok := a.buddy.Alloc(1 << order)
	if !ok {
		return 0, false
	}
	hdr := (*kmallocHeader)(ptrAt(addr))
	*hdr = kmallocHeader{order: order, size: size}
	return addr + Va_t(headerSize), true
}

// Kfree releases a block previously returned by Kmalloc.
func (a *Allocator) Kfree(p Va_t) {
	base := p - Va_t(headerSize)
	hdr := (*kmallocHeader)(ptrAt(base))
	if hdr.cache != nil {
		hdr.cache.Free(base)
		return
	}
	a.buddy.Free(base)
}
