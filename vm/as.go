// Package vm implements the per-process address-space model (mm_struct,
// spec §3/§4.5) and the uaccess copy-in/copy-out routines (§4.6). Grounded
// on the teacher's Vm_t/Vmregion_t/Vminfo_t (vm/as.go) — the embedded-mutex
// and Lock_pmap/Unlock_pmap/Lockassert_pmap idiom is kept verbatim — but
// rebuilt around mem.Engine's temp-mapping-arena page-table access instead
// of the teacher's Dmap, and with the file-backed/shared-mapping/COW-
// refcount/multi-CPU TLB-shootdown machinery dropped: those serve a 64-bit,
// SMP-capable, demand-paged design this kernel's Non-goals (§1: "SMP...
// demand paging from disk, swap") explicitly exclude.
package vm

import (
	"sync"

	"coalos/bounds"
	"coalos/defs"
	"coalos/mem"
	"coalos/ustr"
)

// Perm is the VMA's protection/kind flags (spec §3 VMA "flags (R/W/X,
// user, anonymous, grows-down, file-backed)"). Only the bits this kernel
// actually enforces are kept; file-backed mappings are out of scope.
type Perm uint32

const (
	PermR Perm = 1 << iota
	PermW
	PermX
	PermGrowsDown
)

func (p Perm) pte() mem.PTE {
	flags := mem.PTE_U
	if p&PermW != 0 {
		flags |= mem.PTE_W
	}
	return flags
}

// VMA is one virtual memory area: a half-open page-aligned range with
// permission flags (spec §3). VMAs within one address space are disjoint
// and ordered.
type VMA struct {
	Start, End mem.Va_t
	Perm       Perm
}

func (v *VMA) contains(va mem.Va_t) bool { return va >= v.Start && va < v.End }
func (v *VMA) len() int                  { return int(v.End - v.Start) }

// VMASet is the ordered, disjoint collection of VMAs for one address space
// (spec §3 "mm_struct... ordered VMA set"). Grounded on the teacher's
// Vmregion_t, simplified to a sorted slice since this kernel has no 64-bit
// sparse address space to justify the teacher's tree.
type VMASet struct {
	areas []*VMA
}

// Insert adds v, maintaining order, and panics if it overlaps an existing
// VMA (spec §3 invariant b: "no two VMAs overlap" — a caller violating this
// is a kernel logic error, not a recoverable condition).
func (s *VMASet) Insert(v *VMA) {
	for _, o := range s.areas {
		if bounds.Overlaps(uintptr(v.Start), uintptr(v.End), uintptr(o.Start), uintptr(o.End)) {
			panic("vm: overlapping VMA insert")
		}
	}
	i := 0
	for i < len(s.areas) && s.areas[i].Start < v.Start {
		i++
	}
	s.areas = append(s.areas, nil)
	copy(s.areas[i+1:], s.areas[i:])
	s.areas[i] = v
}

// Lookup returns the VMA containing va, if any.
func (s *VMASet) Lookup(va mem.Va_t) (*VMA, bool) {
	for _, v := range s.areas {
		if v.contains(va) {
			return v, true
		}
	}
	return nil, false
}

// Overlaps reports whether [start, end) intersects any existing VMA,
// without inserting — used by callers (like Mmap's MAP_FIXED path) that
// must report EINVAL/ENOMEM to a user rather than let Insert's
// kernel-logic-error panic fire on user-triggerable input.
func (s *VMASet) Overlaps(start, end mem.Va_t) bool {
	for _, o := range s.areas {
		if bounds.Overlaps(uintptr(start), uintptr(end), uintptr(o.Start), uintptr(o.End)) {
			return true
		}
	}
	return false
}

// Remove deletes the VMA exactly matching [start, end).
func (s *VMASet) Remove(start, end mem.Va_t) bool {
	for i, v := range s.areas {
		if v.Start == start && v.End == end {
			s.areas = append(s.areas[:i], s.areas[i+1:]...)
			return true
		}
	}
	return false
}

// Empty finds the lowest unused gap of at least length n bytes at or above
// startva, below mem.UserTop (spec §3 invariant c).
func (s *VMASet) Empty(startva mem.Va_t, n int) (mem.Va_t, bool) {
	cand := startva
	for {
		if cand+mem.Va_t(n) > mem.UserTop {
			return 0, false
		}
		overlap := false
		for _, v := range s.areas {
			if bounds.Overlaps(uintptr(cand), uintptr(cand)+uintptr(n), uintptr(v.Start), uintptr(v.End)) {
				cand = v.End
				overlap = true
				break
			}
		}
		if !overlap {
			return cand, true
		}
	}
}

// AS is the per-process address space (spec §3 mm_struct): PD physical
// address, the VMA set, heap/code/data/stack boundaries, and the mutex
// protecting VMA and page-table mutation. Lifecycle: Create, Fork (copy),
// destroyed on process reap by FreeAll.
type AS struct {
	sync.Mutex
	inPageFault bool

	PD      mem.Pa_t
	Regions VMASet

	StartBrk, EndBrk mem.Va_t

	engine *mem.Engine
	frames mem.FrameOwner
	arena  *mem.Arena
}

// Lock_pmap acquires the address-space mutex and marks that a page fault is
// being handled — kept from the teacher's naming verbatim (spec §5 lock
// order: "mm -> fd table -> ...").
func (a *AS) Lock_pmap() {
	a.Lock()
	a.inPageFault = true
}

func (a *AS) Unlock_pmap() {
	a.inPageFault = false
	a.Unlock()
}

func (a *AS) Lockassert_pmap() {
	if !a.inPageFault {
		panic("vm: pmap lock must be held")
	}
}

// NewAS creates a fresh address space backed by engine/frames, with a brand
// new page directory (spec "created by create_mm").
func NewAS(engine *mem.Engine, frames mem.FrameOwner, arena *mem.Arena) (*AS, error) {
	pd, err := engine.NewDirectory()
	if err != nil {
		return nil, err
	}
	return &AS{PD: pd, engine: engine, frames: frames, arena: arena}, nil
}

// AddAnon inserts a new anonymous VMA at [start, start+length) with the
// given permissions, without mapping any pages (spec §3 VMA "anonymous");
// no fault path maps them later. MapAnon inserts the VMA and maps it.
func (a *AS) AddAnon(start mem.Va_t, length int, perm Perm) *VMA {
	v := &VMA{Start: start, End: start + mem.Va_t(mem.PageRoundup(mem.Va_t(length))), Perm: perm}
	a.Regions.Insert(v)
	return v
}

// Grow extends the heap VMA to newEnd (brk syscall, spec §6), allocating
// and mapping the newly covered pages eagerly (this kernel has no demand
// paging — Non-goals §1).
func (a *AS) Grow(newEnd mem.Va_t) defs.Err_t {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	if newEnd < a.StartBrk {
		return -defs.EINVAL
	}
	old := mem.PageRoundup(a.EndBrk)
	want := mem.PageRoundup(newEnd)
	for va := old; va < want; va += mem.PGSIZE {
		pa, ok := a.frames.AllocFrame()
		if !ok {
			return -defs.ENOMEM
		}
		if err := a.engine.MapRange(a.PD, va, pa, mem.PGSIZE, PermR.pte()|PermW.pte()); err != nil {
			a.frames.FreeFrame(pa)
			return -defs.ENOMEM
		}
	}
	a.EndBrk = newEnd
	return 0
}

// accessOK reports whether [va, va+length) lies below UserTop inside a
// single VMA and, when write is set, whether that VMA is writable (spec
// §4.6 access_ok).
func (a *AS) accessOK(va mem.Va_t, length int, write bool) bool {
	if length <= 0 || va == 0 || va >= mem.UserTop {
		return false
	}
	end := va + mem.Va_t(length)
	if end > mem.UserTop || end < va {
		return false
	}
	v, ok := a.Regions.Lookup(va)
	if !ok || !v.contains(end-1) {
		return false
	}
	if write && v.Perm&PermW == 0 {
		return false
	}
	return true
}

// AccessOK exports accessOK for syscall-layer pre-checks (spec §4.6
// `access_ok(kind, uptr, len)`).
func (a *AS) AccessOK(va mem.Va_t, length int, write bool) bool {
	a.Lock_pmap()
	defer a.Unlock_pmap()
	return a.accessOK(va, length, write)
}

// FreeAll tears down every user mapping and frees the page directory (spec
// §3 mm_struct lifecycle "destroyed on process reap").
func (a *AS) FreeAll() {
	a.Lock_pmap()
	defer a.Unlock_pmap()
	a.engine.FreeUserSpace(a.PD)
	a.frames.FreeFrame(a.PD)
	a.Regions = VMASet{}
}

// MapAnon inserts a VMA at [start, start+length) and eagerly allocates and
// maps zeroed pages to back it (spec §4.8 Create "allocate and map one
// initial user stack page" / Execve "build a new mm from the target ELF" —
// used for both; this kernel has no demand paging, Non-goals §1).
func (a *AS) MapAnon(start mem.Va_t, length int, perm Perm) defs.Err_t {
	a.Lock_pmap()
	defer a.Unlock_pmap()
	return a.mapAnonLocked(start, length, perm)
}

// mapAnonLocked is MapAnon's body, factored out so Mmap can insert the VMA
// and its gap-search under a single Lock_pmap critical section instead of
// re-entering the (non-reentrant) AS mutex.
func (a *AS) mapAnonLocked(start mem.Va_t, length int, perm Perm) defs.Err_t {
	v := &VMA{Start: start, End: start + mem.Va_t(mem.PageRoundup(mem.Va_t(length))), Perm: perm}
	a.Regions.Insert(v)
	flags := perm.pte()
	for va := v.Start; va < v.End; va += mem.Va_t(mem.PGSIZE) {
		pa, ok := a.frames.AllocFrame()
		if !ok {
			return -defs.ENOMEM
		}
		zva := a.arena.Map(pa, mem.PTE_W)
		words := (*[mem.PGSIZE]byte)(ptrAtVM(zva))
		for i := range words {
			words[i] = 0
		}
		a.arena.Unmap(zva)
		if err := a.engine.MapRange(a.PD, va, pa, mem.PGSIZE, flags|mem.PTE_P); err != nil {
			a.frames.FreeFrame(pa)
			return -defs.ENOMEM
		}
	}
	return 0
}

// Mmap implements the anonymous-mapping subset of mmap(2) (spec §6 SYS_MMAP,
// Non-goal §1 "no file-backed demand paging" — MAP_ANONYMOUS only). If
// fixed is set, hint is taken as the exact start address; otherwise the
// first free gap at or above hint is used.
func (a *AS) Mmap(hint mem.Va_t, length int, perm Perm, fixed bool) (mem.Va_t, defs.Err_t) {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	n := mem.PageRoundup(mem.Va_t(length))
	var start mem.Va_t
	if fixed {
		start = mem.PageRounddown(hint)
		if a.Regions.Overlaps(start, start+n) {
			return 0, -defs.EINVAL
		}
	} else {
		s, ok := a.Regions.Empty(mem.PageRounddown(hint), int(n))
		if !ok {
			return 0, -defs.ENOMEM
		}
		start = s
	}
	if err := a.mapAnonLocked(start, int(n), perm); err != 0 {
		return 0, err
	}
	return start, 0
}

// WriteBytes copies data into an already-mapped region of this address
// space, starting at va (spec §4.8 Create "load ELF into user VMAs"). va
// and the covering pages must already be present (e.g. via a prior
// MapAnon call).
func (a *AS) WriteBytes(va mem.Va_t, data []uint8) defs.Err_t {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	off := 0
	for off < len(data) {
		cva := va + mem.Va_t(off)
		pa, _, ok := a.engine.Translate(a.PD, mem.PageRounddown(cva))
		if !ok {
			return -defs.EFAULT
		}
		pageoff := int(cva - mem.PageRounddown(cva))
		tva := a.arena.Map(pa, mem.PTE_W)
		page := (*[mem.PGSIZE]byte)(ptrAtVM(tva))
		n := copy(page[pageoff:], data[off:])
		a.arena.Unmap(tva)
		off += n
	}
	return 0
}

// ReadBytes copies len(buf) bytes starting at va in this address space
// into buf — the read-side counterpart of WriteBytes, used by signal
// delivery to recover a saved sigcontext on sigreturn.
func (a *AS) ReadBytes(va mem.Va_t, buf []uint8) defs.Err_t {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	off := 0
	for off < len(buf) {
		cva := va + mem.Va_t(off)
		pa, _, ok := a.engine.Translate(a.PD, mem.PageRounddown(cva))
		if !ok {
			return -defs.EFAULT
		}
		pageoff := int(cva - mem.PageRounddown(cva))
		tva := a.arena.Map(pa, 0)
		page := (*[mem.PGSIZE]byte)(ptrAtVM(tva))
		n := copy(buf[off:], page[pageoff:])
		a.arena.Unmap(tva)
		off += n
	}
	return 0
}

// Fork creates a child address space holding the same VMAs as a, with
// every currently-mapped page eagerly copied (spec §4.8 Fork "copy every
// parent VMA into the child's mm" — eager copy, not copy-on-write, since
// this kernel has no per-page refcounting to make COW safe, Non-goals §1).
func (a *AS) Fork() (*AS, defs.Err_t) {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	child, err := NewAS(a.engine, a.frames, a.arena)
	if err != nil {
		return nil, -defs.ENOMEM
	}
	for _, v := range a.Regions.areas {
		nv := &VMA{Start: v.Start, End: v.End, Perm: v.Perm}
		child.Regions.Insert(nv)
		for va := v.Start; va < v.End; va += mem.Va_t(mem.PGSIZE) {
			pa, flags, ok := a.engine.Translate(a.PD, va)
			if !ok {
				continue
			}
			npa, ok := a.frames.AllocFrame()
			if !ok {
				child.FreeAll()
				return nil, -defs.ENOMEM
			}
			srcva := a.arena.Map(pa, 0)
			dstva := a.arena.Map(npa, mem.PTE_W)
			copyPage(dstva, srcva)
			a.arena.Unmap(srcva)
			a.arena.Unmap(dstva)
			if err := a.engine.MapRange(child.PD, va, npa, mem.PGSIZE, flags|mem.PTE_P); err != nil {
				a.frames.FreeFrame(npa)
				child.FreeAll()
				return nil, -defs.ENOMEM
			}
		}
	}
	child.StartBrk, child.EndBrk = a.StartBrk, a.EndBrk
	return child, 0
}

// Userstr copies a NUL-terminated string from user space, up to lenmax
// bytes, returning ENAMETOOLONG on overflow (spec §4.6).
func (a *AS) Userstr(uva mem.Va_t, lenmax int) (ustr.Ustr, defs.Err_t) {
	s := ustr.MkUstr()
	buf := make([]uint8, 1)
	for i := 0; ; i++ {
		if err := a.copyUser(buf, uva+mem.Va_t(i), false); err != 0 {
			return nil, err
		}
		if buf[0] == 0 {
			return s, 0
		}
		s = append(s, buf[0])
		if len(s) >= lenmax {
			return nil, -defs.ENAMETOOLONG
		}
	}
}
