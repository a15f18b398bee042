package cpu

import "unsafe"

// Selector values Coal OS installs (spec §6).
const (
	SelNull   uint16 = 0x00
	SelKCode  uint16 = 0x08
	SelKData  uint16 = 0x10
	SelUCode  uint16 = 0x1B // RPL 3 baked into the selector
	SelUData  uint16 = 0x23
	SelTSS    uint16 = 0x28
)

// descriptor access/flag bits for a GDT entry.
const (
	accPresent  = 1 << 7
	accRing3    = 3 << 5
	accCode     = 1<<4 | 1<<3 // code, non-conforming
	accData     = 1<<4 | 1<<1 // data, writable
	accAccessed = 1 << 0
	accTSS32    = 0x9 // 32-bit available TSS

	flagGranularity = 1 << 3 // limit scaled by 4KiB
	flagSize32      = 1 << 2 // 32-bit operand/address size
)

// Descriptor is one 8-byte GDT entry, laid out exactly as the LGDT
// instruction expects.
type Descriptor uint64

func mkDescriptor(base uint32, limit uint32, access uint8, flags uint8) Descriptor {
	var d uint64
	d |= uint64(limit) & 0xffff
	d |= (uint64(limit) >> 16 & 0xf) << 48
	d |= uint64(base&0xffffff) << 16
	d |= uint64(base>>24) << 56
	d |= uint64(access) << 40
	d |= uint64(flags&0xf) << 52
	return Descriptor(d)
}

// TSS_t is the 32-bit Task State Segment. Coal OS uses exactly one,
// updating only Esp0/Ss0 on every context switch (spec §4.7): ring-3 code
// re-enters the kernel through this SS0:ESP0 on any interrupt or syscall.
type TSS_t struct {
	linkPrev uint32
	Esp0     uint32
	Ss0      uint32
	_        [21]uint32 // esp1/ss1, esp2/ss2, cr3, eip, eflags, gprs, segs — unused, ring 0 is the only other ring we enter via TSS
	_        uint32     // ldt selector
	_        uint16
	ioMapBase uint16
}

// GDT_t is the fixed five-descriptor table (spec §4 "GDT/TSS"): null,
// kernel code, kernel data, user code, user data, plus the TSS descriptor
// appended as a sixth entry (the table itself has six slots even though
// the spec's summary table lists five segment selectors — the TSS
// selector 0x28 is the sixth).
type GDT_t [6]Descriptor

// BuildGDT constructs the GDT described by spec §6: flat (base 0, limit
// 0xFFFFF with 4KiB granularity) segments for ring 0 and ring 3, plus a TSS
// descriptor pointing at tss.
func BuildGDT(tss *TSS_t) GDT_t {
	var g GDT_t
	g[0] = 0
	g[1] = mkDescriptor(0, 0xfffff, accPresent|accCode, flagGranularity|flagSize32)
	g[2] = mkDescriptor(0, 0xfffff, accPresent|accData, flagGranularity|flagSize32)
	g[3] = mkDescriptor(0, 0xfffff, accPresent|accRing3|accCode, flagGranularity|flagSize32)
	g[4] = mkDescriptor(0, 0xfffff, accPresent|accRing3|accData, flagGranularity|flagSize32)
	base := uint32(uintptr(unsafe.Pointer(tss)))
	limit := uint32(unsafe.Sizeof(*tss) - 1)
	g[5] = mkDescriptor(base, limit, accPresent|accTSS32, 0)
	return g
}

// SetKernelStack updates the TSS so the next ring3->ring0 transition lands
// on the given kernel stack (spec §4.7: "TSS.esp0 is updated to the new
// task's kernel stack top before the switch").
func SetKernelStack(tss *TSS_t, esp0 uintptr) {
	tss.Esp0 = uint32(esp0)
	tss.Ss0 = uint32(SelKData)
}
