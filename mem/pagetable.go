package mem

import (
	"fmt"

	"coalos/cpu"
)

// FrameOwner allocates and frees the physical frames the page-table engine
// needs for new page tables and page directories. In production this is a
// *Physmem_t; tests substitute a small fake.
type FrameOwner interface {
	AllocFrame() (Pa_t, bool)
	FreeFrame(pa Pa_t)
}

// Engine is the page-table engine of spec §4.2: map/unmap/translate any
// page in any page directory, by temp-mapping whatever isn't already
// reachable. store is the PTStore used to read/write PD and PT frames when
// pd isn't the currently loaded directory; when it is, every access goes
// through the recursive self-map instead (spec §4.2 "Recursive mapping
// rule", testable property 3) — routing the *current* PD/PT through
// Store's temp-arena path would recurse back into the arena's own
// MapRange call forever, since the arena maps its slots into exactly that
// directory. invlpg is called after every PTE mutation that affects the
// live CR3.
type Engine struct {
	Store    PTStore
	Frames   FrameOwner
	Invlpg   func(va Va_t)
	KernelPD Pa_t // physical address of the shared kernel PD
}

// isCurrent reports whether pd is the page directory presently loaded in
// CR3 — the one the recursive self-map exposes.
func (e *Engine) isCurrent(pd Pa_t) bool {
	return pd == Pa_t(cpu.ReadCR3())
}

func readRecursivePDE(idx int) PTE     { return *(*PTE)(ptrAt(RecursivePDEVA(idx))) }
func writeRecursivePDE(idx int, v PTE) { *(*PTE)(ptrAt(RecursivePDEVA(idx))) = v }

func zeroRecursivePT(idx int) {
	words := (*[1024]PTE)(ptrAt(RecursivePTBase + Va_t(idx)*PGSIZE))
	for i := range words {
		words[i] = 0
	}
}

func readRecursivePTE(va Va_t) PTE     { return *(*PTE)(ptrAt(RecursivePTEVA(va))) }
func writeRecursivePTE(va Va_t, v PTE) { *(*PTE)(ptrAt(RecursivePTEVA(va))) = v }

// pdeFor returns the PTE-shaped page-directory entry covering va within pd,
// allocating and zeroing a new page table if absent and alloc is true.
func (e *Engine) pdeFor(pd Pa_t, va Va_t, alloc bool) (PTE, bool) {
	idx := PDIdx(va)
	current := e.isCurrent(pd)

	var pde PTE
	if current {
		pde = readRecursivePDE(idx)
	} else {
		pde = e.Store.Word(pd, idx)
	}
	if pde.Present() {
		return pde, true
	}
	if !alloc {
		return 0, false
	}

	ptpa, ok := e.Frames.AllocFrame()
	if !ok {
		return 0, false
	}
	flags := PTE_P | PTE_W
	if va < UserTop {
		flags |= PTE_U
	}
	pde = MkPTE(ptpa, flags)

	if current {
		// The PDE must land first: zeroing the new table goes through
		// the very recursive window this PDE creates.
		writeRecursivePDE(idx, pde)
		zeroRecursivePT(idx)
	} else {
		e.Store.ZeroFrame(ptpa)
		e.Store.SetWord(pd, idx, pde)
	}
	return pde, true
}

// MapRange maps len bytes starting at va to consecutive physical frames
// starting at pa, within the directory pd. va, pa and len must be
// page-aligned (spec §4.2).
func (e *Engine) MapRange(pd Pa_t, va Va_t, pa Pa_t, length int, flags PTE) error {
	if va%PGSIZE != 0 || Va_t(pa)%PGSIZE != 0 || length%PGSIZE != 0 {
		return fmt.Errorf("mem: MapRange requires page-aligned args")
	}
	current := e.isCurrent(pd)
	for off := 0; off < length; off += PGSIZE {
		cva := va + Va_t(off)
		cpa := pa + Pa_t(off)
		pde, ok := e.pdeFor(pd, cva, true)
		if !ok {
			return fmt.Errorf("mem: MapRange: out of frames for page table")
		}
		pte := MkPTE(cpa, flags|PTE_P)
		if current {
			writeRecursivePTE(cva, pte)
		} else {
			e.Store.SetWord(pde.Addr(), PTIdx(cva), pte)
		}
		e.Invlpg(cva)
	}
	return nil
}

// UnmapRange clears len bytes of mappings starting at va within pd. It is
// not an error to unmap pages that were never mapped.
func (e *Engine) UnmapRange(pd Pa_t, va Va_t, length int) error {
	if va%PGSIZE != 0 || length%PGSIZE != 0 {
		return fmt.Errorf("mem: UnmapRange requires page-aligned args")
	}
	current := e.isCurrent(pd)
	for off := 0; off < length; off += PGSIZE {
		cva := va + Va_t(off)
		pde, ok := e.pdeFor(pd, cva, false)
		if !ok {
			continue
		}
		if current {
			writeRecursivePTE(cva, 0)
		} else {
			e.Store.SetWord(pde.Addr(), PTIdx(cva), 0)
		}
		e.Invlpg(cva)
	}
	return nil
}

// Translate returns the physical address and flags mapped at va within pd,
// or ok=false if unmapped (spec §4.2 Translate, testable property 2).
func (e *Engine) Translate(pd Pa_t, va Va_t) (Pa_t, PTE, bool) {
	pde, ok := e.pdeFor(pd, va, false)
	if !ok {
		return 0, 0, false
	}
	var pte PTE
	if e.isCurrent(pd) {
		pte = readRecursivePTE(va)
	} else {
		pte = e.Store.Word(pde.Addr(), PTIdx(va))
	}
	if !pte.Present() {
		return 0, 0, false
	}
	return pte.Addr(), pte &^ PTE_ADDR, true
}

// NewDirectory allocates and zeroes a fresh page directory, installs the
// shared kernel PDEs (indices >= UserTopPDE, copied by value/reference —
// the underlying page tables are shared, spec §5), and sets the recursive
// self-mapping PDE[1023].
func (e *Engine) NewDirectory() (Pa_t, error) {
	pa, ok := e.Frames.AllocFrame()
	if !ok {
		return 0, fmt.Errorf("mem: NewDirectory: out of frames")
	}
	e.Store.ZeroFrame(pa)
	for i := UserTopPDE; i < RecursiveSlot; i++ {
		kpde := e.Store.Word(e.KernelPD, i)
		e.Store.SetWord(pa, i, kpde)
	}
	e.Store.SetWord(pa, RecursiveSlot, MkPTE(pa, PTE_P|PTE_W))
	return pa, nil
}

// CloneDirectory builds a new page directory for fork: kernel PDEs are
// shared by value, user PDEs start empty (the caller is expected to copy
// user pages itself — e.g. by re-inserting each VMA — since the copy
// policy, such as copy-on-write, lives in package vm, not here).
func (e *Engine) CloneDirectory(src Pa_t) (Pa_t, error) {
	return e.NewDirectory()
}

// FreeUserSpace walks every user PDE (indices below UserTopPDE), frees each
// present page and each page table, then clears the PDE. It does not free
// pd itself; the caller does that once FreeUserSpace returns (spec §4.2).
func (e *Engine) FreeUserSpace(pd Pa_t) {
	for i := 0; i < UserTopPDE; i++ {
		pde := e.Store.Word(pd, i)
		if !pde.Present() {
			continue
		}
		ptpa := pde.Addr()
		for j := 0; j < 1024; j++ {
			pte := e.Store.Word(ptpa, j)
			if pte.Present() {
				e.Frames.FreeFrame(pte.Addr())
			}
		}
		e.Frames.FreeFrame(ptpa)
		e.Store.SetWord(pd, i, 0)
	}
}

// RecursivePTEVA computes the fixed virtual address of the PTE for va
// within the *currently loaded* page directory, via the recursive
// self-mapping window — no temp slot required (spec §4.2, testable
// property 3).
func RecursivePTEVA(va Va_t) Va_t {
	pdIdx := Va_t(PDIdx(va))
	ptIdx := Va_t(PTIdx(va))
	return RecursivePTBase + (pdIdx << PTSHIFT) + (ptIdx << 2)
}

// RecursivePDEVA computes the fixed virtual address of PDE[idx] of the
// currently loaded page directory.
func RecursivePDEVA(idx int) Va_t {
	return RecursivePDVA + Va_t(idx)*4
}
