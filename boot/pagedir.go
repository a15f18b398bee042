package boot

import (
	"unsafe"

	"coalos/cpu"
	"coalos/mem"
)

// KernelPhysBase is where the loader places the kernel image (spec §6:
// "the loader... leaves the kernel image loaded at a known physical
// address"). kernelWindow is the single 4MiB PDE's worth of physical
// memory the bootstrap directory reserves for it — generous for this
// kernel's size, and simple: one page table, aliased at two PDEs, covers
// identity-mapped low memory and the higher-half kernel image alike.
const (
	KernelPhysBase mem.Pa_t = 0x100000
	kernelWindow            = 4 * 1024 * 1024
)

func rawWord(pa mem.Pa_t) *uint32 { return (*uint32)(unsafe.Pointer(uintptr(pa))) }

func rawZeroFrame(pa mem.Pa_t) {
	words := (*[mem.PGSIZE / 4]uint32)(unsafe.Pointer(uintptr(pa)))
	for i := range words {
		words[i] = 0
	}
}

// buildBootstrapDirectory constructs the very first page directory, before
// paging is enabled: identity-mapping the low 4MiB the kernel was loaded
// into, aliasing the same page table at the higher-half PDE so the kernel
// keeps running under its linked addresses the instant paging turns on,
// and installing the recursive self-map at PDE[RecursiveSlot] (spec §4.2)
// so mem.Engine's fast path is live from the very first MapRange call.
// Every access here is a direct physical read/write — paging isn't on yet,
// so linear addresses and physical addresses coincide (spec §6).
func buildBootstrapDirectory(alloc func() (mem.Pa_t, bool)) (mem.Pa_t, bool) {
	pdpa, ok := alloc()
	if !ok {
		return 0, false
	}
	rawZeroFrame(pdpa)

	ptpa, ok := alloc()
	if !ok {
		return 0, false
	}
	rawZeroFrame(ptpa)

	for i := 0; i < 1024; i++ {
		pa := mem.Pa_t(i * mem.PGSIZE)
		pte := mem.MkPTE(pa, mem.PTE_P|mem.PTE_W)
		*rawWord(ptpa + mem.Pa_t(i*4)) = uint32(pte)
	}

	identityPDE := mem.MkPTE(ptpa, mem.PTE_P|mem.PTE_W)
	*rawWord(pdpa + mem.Pa_t(0*4)) = uint32(identityPDE)
	*rawWord(pdpa + mem.Pa_t(mem.UserTopPDE*4)) = uint32(identityPDE)

	selfMap := mem.MkPTE(pdpa, mem.PTE_P|mem.PTE_W)
	*rawWord(pdpa + mem.Pa_t(mem.RecursiveSlot*4)) = uint32(selfMap)

	return pdpa, true
}

// enablePaging loads pd into CR3 and sets CR0.PG. Callers must already be
// executing out of an address the new directory maps (the identity/alias
// window buildBootstrapDirectory installs), since the very next
// instruction fetch after WriteCR0 is translated through it.
func enablePaging(pd mem.Pa_t) {
	cpu.WriteCR3(uintptr(pd))
	cpu.WriteCR0(cpu.ReadCR0() | cpu.CR0_PG)
}
