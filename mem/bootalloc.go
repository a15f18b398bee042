package mem

// BootAllocator is the bounded bump allocator used before Physmem_t exists
// (spec §4.1 "before the real allocator exists"). It walks at most
// MaxBootEntries regions of the Multiboot2 memory map and hands out frames
// one at a time, skipping anything below 1MiB, the kernel image, and the
// multiboot info pages. It is deliberately simple: no free(), since nothing
// is freed before paging and the real allocator take over.
type BootAllocator struct {
	regions []Range
	kernel  Range
	mbinfo  Range
	ri      int  // index of region currently being consumed
	next    Pa_t // next candidate address within regions[ri]
}

// MaxBootEntries bounds the number of memory-map regions the boot allocator
// will consider, matching spec §4.1's "bounded (<=256 entries)".
const MaxBootEntries = 256

// oneMiB is the lowest address the boot allocator will ever hand out.
const oneMiB Pa_t = 1 << 20

// InitBoot prepares the bump tracker over the given Multiboot2 "available"
// regions, reserving the kernel image and the multiboot info blob.
func (b *BootAllocator) InitBoot(avail []Range, kernelImage, mbInfo Range) {
	if len(avail) > MaxBootEntries {
		avail = avail[:MaxBootEntries]
	}
	b.regions = avail
	b.kernel = kernelImage
	b.mbinfo = mbInfo
	b.ri = 0
	if len(avail) > 0 {
		b.next = avail[0].Start
	}
}

func (b *BootAllocator) skip(pa Pa_t) bool {
	return pa < oneMiB || b.kernel.contains(pa) || b.mbinfo.contains(pa)
}

// Alloc returns the next available physical frame, or (0, false) once every
// region has been exhausted.
func (b *BootAllocator) Alloc() (Pa_t, bool) {
	for b.ri < len(b.regions) {
		r := b.regions[b.ri]
		if b.next < r.Start {
			b.next = r.Start
		}
		for b.next+PGSIZE <= r.End {
			pa := b.next
			b.next += PGSIZE
			if b.skip(pa) {
				continue
			}
			return pa, true
		}
		b.ri++
		if b.ri < len(b.regions) {
			b.next = b.regions[b.ri].Start
		}
	}
	return 0, false
}
