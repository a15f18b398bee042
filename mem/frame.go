package mem

import "sync"

// frameState is one of {free, allocated, reserved} (spec §3 Frame
// invariant). It is kept in a metadata array parallel to physical memory,
// never inside the frame itself — Coal OS has no permanent direct map to
// read frame contents through, unlike the teacher's Physmem_t, whose
// per-frame struct also carries an in-place free-list pointer because the
// teacher *can* afford to touch every frame directly.
type frameState uint8

const (
	frameFree frameState = iota
	frameAllocated
	frameReserved
)

type frameMeta struct {
	state frameState
	nexti uint32 // index of next free frame, or sentinel
}

const noNext = ^uint32(0)

// Physmem_t is the physical frame allocator (spec §4.1). It owns every
// frame between startPA and startPA+len(metas)*PGSIZE, minus whatever the
// caller reserved at Init time.
type Physmem_t struct {
	sync.Mutex
	metas   []frameMeta
	startPA Pa_t
	freeHead uint32
	nfree    int
	ntotal   int
}

// Range is a half-open physical address range, used both for the
// Multiboot2 "available" regions and for carve-outs the allocator must
// reject (kernel image, initial heap, multiboot info blob — spec §4.1).
type Range struct {
	Start Pa_t
	End   Pa_t
}

func (r Range) contains(pa Pa_t) bool { return pa >= r.Start && pa < r.End }

// Init carves the frame allocator's frame set out of avail (the usable
// regions from the Multiboot2 memory map) minus reserved (kernel image,
// initial buddy heap, multiboot info pages — spec §4.1). Frames are
// indexed by (pa-startPA)/PGSIZE; startPA is the lowest address seen across
// avail.
func (p *Physmem_t) Init(avail []Range, reserved []Range) {
	p.Lock()
	defer p.Unlock()

	var lo, hi Pa_t
	first := true
	for _, r := range avail {
		if first || r.Start < lo {
			lo = r.Start
		}
		if first || r.End > hi {
			hi = r.End
		}
		first = false
	}
	if first {
		panic("no available memory regions")
	}
	p.startPA = lo
	n := int((hi - lo) / PGSIZE)
	p.metas = make([]frameMeta, n)
	for i := range p.metas {
		p.metas[i] = frameMeta{state: frameReserved, nexti: noNext}
	}

	isAvail := func(pa Pa_t) bool {
		for _, r := range avail {
			if r.contains(pa) {
				return true
			}
		}
		return false
	}
	isReserved := func(pa Pa_t) bool {
		for _, r := range reserved {
			if r.contains(pa) {
				return true
			}
		}
		return false
	}

	p.freeHead = noNext
	p.nfree = 0
	p.ntotal = 0
	// build the free list back-to-front so the head ends up lowest-address
	// first; order doesn't matter for correctness, only for predictability.
	for i := n - 1; i >= 0; i-- {
		pa := p.startPA + Pa_t(i*PGSIZE)
		if !isAvail(pa) || isReserved(pa) {
			continue
		}
		p.metas[i].state = frameFree
		p.metas[i].nexti = p.freeHead
		p.freeHead = uint32(i)
		p.nfree++
		p.ntotal++
	}
	for i := range p.metas {
		if p.metas[i].state == frameAllocated {
			p.ntotal++
		}
	}
}

// idx converts a physical address into a metadata index, panicking (a hard
// logic error per spec §4.1) if pa is outside the owned set.
func (p *Physmem_t) idx(pa Pa_t) uint32 {
	if pa < p.startPA {
		panic("frame not owned by allocator")
	}
	i := uint32((pa - p.startPA) / PGSIZE)
	if int(i) >= len(p.metas) {
		panic("frame not owned by allocator")
	}
	return i
}

// AllocFrame removes a frame from the free list and returns its physical
// address. It returns (0, false) on exhaustion, which callers translate to
// ENOMEM (spec §4.1).
func (p *Physmem_t) AllocFrame() (Pa_t, bool) {
	p.Lock()
	defer p.Unlock()
	if p.freeHead == noNext {
		return 0, false
	}
	i := p.freeHead
	p.freeHead = p.metas[i].nexti
	p.metas[i].state = frameAllocated
	p.metas[i].nexti = noNext
	p.nfree--
	return p.startPA + Pa_t(i)*PGSIZE, true
}

// FreeFrame returns a frame to the free list. Freeing a frame outside the
// owned set, or one not currently allocated, is a hard logic error.
func (p *Physmem_t) FreeFrame(pa Pa_t) {
	p.Lock()
	defer p.Unlock()
	i := p.idx(pa)
	if p.metas[i].state != frameAllocated {
		panic("double free or free of non-allocated frame")
	}
	p.metas[i].state = frameFree
	p.metas[i].nexti = p.freeHead
	p.freeHead = i
	p.nfree++
}

// FreeCount and AllocatedCount support testable property 1 (frame
// conservation): FreeCount()+AllocatedCount()==Total() must hold for any
// sequence of allocs/frees.
func (p *Physmem_t) FreeCount() int {
	p.Lock()
	defer p.Unlock()
	return p.nfree
}

func (p *Physmem_t) AllocatedCount() int {
	p.Lock()
	defer p.Unlock()
	return p.ntotal - p.nfree
}

func (p *Physmem_t) Total() int {
	p.Lock()
	defer p.Unlock()
	return p.ntotal
}
