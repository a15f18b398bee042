package mem

import "sync"

// Buddy order range (spec §2 "Buddy + slab + kmalloc — Power-of-two block
// allocator (orders 12-22)"): order 12 is one 4 KiB page, order 22 is 4 MiB.
const (
	MinOrder = 12
	MaxOrder = 22
)

type buddyBlock struct {
	addr Va_t
	next *buddyBlock
}

// Buddy is a power-of-two free-list allocator over a fixed kernel virtual
// range (the initial kernel heap carved out at boot, spec §4.1's "reserve
// kernel/heap/multiboot ranges"). Grounded on the teacher's free-list style
// (frame.go) generalized to multiple size classes.
type Buddy struct {
	sync.Mutex
	base   Va_t
	size   int
	free   [MaxOrder - MinOrder + 1]*buddyBlock
	inUse  map[Va_t]int // addr -> order, for Free's lookup
}

// NewBuddy creates a buddy allocator managing [base, base+size). size must
// be a power of two multiple of 1<<MinOrder.
func NewBuddy(base Va_t, size int) *Buddy {
	if size&(size-1) != 0 || size < 1<<MinOrder {
		panic("buddy: size must be a power of two >= min block")
	}
	b := &Buddy{base: base, size: size, inUse: make(map[Va_t]int)}
	order := orderOf(size)
	b.free[order-MinOrder] = &buddyBlock{addr: base}
	return b
}

func orderOf(size int) int {
	o := MinOrder
	n := 1 << MinOrder
	for n < size {
		n <<= 1
		o++
	}
	return o
}

// Alloc returns a block of at least size bytes, splitting larger blocks as
// needed, or ok=false if the heap is exhausted at this order range.
func (b *Buddy) Alloc(size int) (Va_t, bool) {
	b.Lock()
	defer b.Unlock()

	want := orderOf(size)
	if want > MaxOrder {
		return 0, false
	}
	order := want
	for order <= MaxOrder && b.free[order-MinOrder] == nil {
		order++
	}
	if order > MaxOrder {
		return 0, false
	}
	blk := b.free[order-MinOrder]
	b.free[order-MinOrder] = blk.next

	// split down to the requested order, pushing the buddy halves onto
	// progressively smaller free lists.
	for order > want {
		order--
		buddyAddr := blk.addr + Va_t(1<<order)
		b.free[order-MinOrder] = &buddyBlock{addr: buddyAddr, next: b.free[order-MinOrder]}
	}
	b.inUse[blk.addr] = want
	return blk.addr, true
}

// Free returns a previously allocated block, coalescing with its buddy when
// possible.
func (b *Buddy) Free(addr Va_t) {
	b.Lock()
	defer b.Unlock()

	order, ok := b.inUse[addr]
	if !ok {
		panic("buddy: free of unknown block")
	}
	delete(b.inUse, addr)

	for order < MaxOrder {
		buddyAddr := b.buddyOf(addr, order)
		if !b.removeFree(order, buddyAddr) {
			break
		}
		if buddyAddr < addr {
			addr = buddyAddr
		}
		order++
	}
	b.free[order-MinOrder] = &buddyBlock{addr: addr, next: b.free[order-MinOrder]}
}

func (b *Buddy) buddyOf(addr Va_t, order int) Va_t {
	off := addr - b.base
	return b.base + (off ^ Va_t(1<<order))
}

func (b *Buddy) removeFree(order int, addr Va_t) bool {
	var prev *buddyBlock
	for cur := b.free[order-MinOrder]; cur != nil; cur = cur.next {
		if cur.addr == addr {
			if prev == nil {
				b.free[order-MinOrder] = cur.next
			} else {
				prev.next = cur.next
			}
			return true
		}
		prev = cur
	}
	return false
}
