package boot

import (
	"unsafe"

	"coalos/mem"
)

// Magic is the value the Multiboot2 loader must leave in EAX (spec §6
// "EAX=magic (must be 0x36d76289)").
const Magic uint32 = 0x36d76289

const (
	tagEnd       = 0
	tagModule    = 3
	tagMemoryMap = 6

	memTypeAvailable = 1
)

type tagHeader struct {
	Type uint32
	Size uint32
}

type mmapEntry struct {
	BaseAddr uint64
	Length   uint64
	Type     uint32
	Reserved uint32
}

// Module is one Multiboot2 boot module: a loaded file's physical extent
// plus its loader-supplied command line (spec §2 "parses... the module
// tags"). The init binary is handed to the kernel this way rather than
// through a filesystem, since there is no filesystem yet at this point in
// boot.
type Module struct {
	Start, End mem.Pa_t
	Cmdline    string
}

// Info is everything Sequence needs out of the raw Multiboot2 info blob:
// the usable-RAM regions and every loaded module (spec §6 "parses the
// memory-map tag and the module tags; no other tag types are required").
type Info struct {
	Avail   []mem.Range
	Modules []Module
}

func readU32(pa mem.Pa_t) uint32 { return *(*uint32)(unsafe.Pointer(uintptr(pa))) }

func readCString(pa mem.Pa_t) string {
	p := uintptr(pa)
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return unsafe.String((*byte)(unsafe.Pointer(p)), n)
}

// alignUp8 rounds pa up to the 8-byte tag alignment Multiboot2 requires.
func alignUp8(pa mem.Pa_t) mem.Pa_t { return (pa + 7) &^ 7 }

// ParseInfo walks the tag list at infoPA (EBX, identity-mapped per spec §6)
// and extracts the memory map and module tags. Every other tag type is
// skipped via its own Size field, per the "no other tag types are
// required" contract.
func ParseInfo(infoPA mem.Pa_t) Info {
	totalSize := readU32(infoPA)
	end := infoPA + mem.Pa_t(totalSize)

	var info Info
	pa := infoPA + 8 // skip total_size/reserved header
	for pa < end {
		h := (*tagHeader)(unsafe.Pointer(uintptr(pa)))
		if h.Type == tagEnd {
			break
		}
		switch h.Type {
		case tagMemoryMap:
			parseMemoryMap(pa, mem.Pa_t(h.Size), &info)
		case tagModule:
			info.Modules = append(info.Modules, parseModule(pa))
		}
		pa = alignUp8(pa + mem.Pa_t(h.Size))
	}
	return info
}

func parseMemoryMap(tagPA mem.Pa_t, tagSize mem.Pa_t, info *Info) {
	entrySize := readU32(tagPA + 8)
	if entrySize == 0 {
		return
	}
	entriesStart := tagPA + 16
	entriesEnd := tagPA + tagSize
	for p := entriesStart; p+mem.Pa_t(entrySize) <= entriesEnd; p += mem.Pa_t(entrySize) {
		e := (*mmapEntry)(unsafe.Pointer(uintptr(p)))
		if e.Type != memTypeAvailable {
			continue
		}
		info.Avail = append(info.Avail, mem.Range{
			Start: mem.Pa_t(e.BaseAddr),
			End:   mem.Pa_t(e.BaseAddr + e.Length),
		})
	}
}

func parseModule(tagPA mem.Pa_t) Module {
	start := readU32(tagPA + 8)
	end := readU32(tagPA + 12)
	return Module{
		Start:   mem.Pa_t(start),
		End:     mem.Pa_t(end),
		Cmdline: readCString(tagPA + 16),
	}
}

// InfoRange reports the physical extent the info blob itself occupies, so
// callers can carve it out of the frame allocator the same way the kernel
// image and initial heap are carved out (spec §4.1 "multiboot info pages").
func InfoRange(infoPA mem.Pa_t) mem.Range {
	return mem.Range{Start: infoPA, End: infoPA + mem.Pa_t(readU32(infoPA))}
}
