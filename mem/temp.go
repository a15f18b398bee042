package mem

import "coalos/cpu"

// NumTempSlots is the fixed size of the temporary-mapping arena (spec §2
// "Temporary-mapping arena — 16 fixed virtual slots"): the only mechanism
// Coal OS has for touching an arbitrary physical frame, since there is no
// permanent direct map.
const NumTempSlots = 16

// TempBase is the first virtual address of the arena. It lives just below
// the recursive self-map window so it never collides with RecursivePTBase.
const TempBase Va_t = RecursivePTBase - NumTempSlots*PGSIZE

// Arena hands out one of NumTempSlots virtual pages at a time, mapped to
// whatever physical frame a caller needs to read or write. It always maps
// into the *currently loaded* page directory, via the recursive self-map,
// so Map/Unmap never need their own standing PD/PT allocation.
type Arena struct {
	Engine *Engine
	used   [NumTempSlots]bool
	slotPA [NumTempSlots]Pa_t
}

// Map reserves a free slot, maps pa into it with flags, and returns the
// slot's virtual address. It panics if every slot is in use — a caller
// holding more than 16 temporary mappings at once is a logic error, not a
// resource-exhaustion condition the kernel needs to recover from.
func (a *Arena) Map(pa Pa_t, flags PTE) Va_t {
	for i := 0; i < NumTempSlots; i++ {
		if a.used[i] {
			continue
		}
		va := TempBase + Va_t(i*PGSIZE)
		pd := Pa_t(cpu.ReadCR3())
		if err := a.Engine.MapRange(pd, va, pa, PGSIZE, flags|PTE_P|PTE_W); err != nil {
			panic("temp arena: map failed: " + err.Error())
		}
		a.used[i] = true
		a.slotPA[i] = pa
		return va
	}
	panic("temp arena exhausted")
}

// Unmap releases the slot mapping va, invalidating its TLB entry.
func (a *Arena) Unmap(va Va_t) {
	i := int((va - TempBase) / PGSIZE)
	if i < 0 || i >= NumTempSlots || !a.used[i] {
		panic("temp arena: unmap of unmapped slot")
	}
	pd := Pa_t(cpu.ReadCR3())
	if err := a.Engine.UnmapRange(pd, va, PGSIZE); err != nil {
		panic("temp arena: unmap failed: " + err.Error())
	}
	a.used[i] = false
}

// tempStore is the production PTStore: every Word/SetWord/ZeroFrame call
// borrows a temp slot for the duration of the access. This is slower than
// the teacher's Dmap-backed equivalent but is the only option without a
// standing direct map (package doc, types.go).
type tempStore struct {
	arena *Arena
}

// NewTempStore builds the production PTStore backed by arena.
func NewTempStore(arena *Arena) PTStore {
	return &tempStore{arena: arena}
}

func (s *tempStore) Word(pa Pa_t, idx int) PTE {
	va := s.arena.Map(PageRounddown(Va_t(pa)), 0)
	defer s.arena.Unmap(va)
	words := (*[1024]PTE)(ptrAt(va))
	return words[idx]
}

func (s *tempStore) SetWord(pa Pa_t, idx int, v PTE) {
	va := s.arena.Map(PageRounddown(Va_t(pa)), PTE_W)
	defer s.arena.Unmap(va)
	words := (*[1024]PTE)(ptrAt(va))
	words[idx] = v
}

func (s *tempStore) ZeroFrame(pa Pa_t) {
	va := s.arena.Map(PageRounddown(Va_t(pa)), PTE_W)
	defer s.arena.Unmap(va)
	words := (*[1024]PTE)(ptrAt(va))
	for i := range words {
		words[i] = 0
	}
}
