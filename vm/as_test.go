package vm

import (
	"testing"

	"coalos/mem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMASetInsertOrdersByStart(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x2000, End: 0x3000})
	s.Insert(&VMA{Start: 0x1000, End: 0x2000})
	s.Insert(&VMA{Start: 0x3000, End: 0x4000})

	require.Len(t, s.areas, 3)
	assert.EqualValues(t, 0x1000, s.areas[0].Start)
	assert.EqualValues(t, 0x2000, s.areas[1].Start)
	assert.EqualValues(t, 0x3000, s.areas[2].Start)
}

func TestVMASetInsertPanicsOnOverlap(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x1000, End: 0x3000})
	assert.Panics(t, func() { s.Insert(&VMA{Start: 0x2000, End: 0x4000}) })
}

func TestVMASetLookup(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x1000, End: 0x2000, Perm: PermR})

	v, ok := s.Lookup(0x1500)
	require.True(t, ok)
	assert.Equal(t, PermR, v.Perm)

	_, ok = s.Lookup(0x2000) // half-open: End is not contained
	assert.False(t, ok)

	_, ok = s.Lookup(0x500)
	assert.False(t, ok)
}

func TestVMASetOverlapsNonMutating(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x1000, End: 0x2000})

	assert.True(t, s.Overlaps(0x1800, 0x2800))
	assert.False(t, s.Overlaps(0x2000, 0x3000))
	assert.Len(t, s.areas, 1, "Overlaps must not mutate the set")
}

func TestVMASetRemove(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x1000, End: 0x2000})

	assert.True(t, s.Remove(0x1000, 0x2000))
	assert.Empty(t, s.areas)
	assert.False(t, s.Remove(0x1000, 0x2000), "already removed")
}

func TestVMASetEmptyFindsGapAboveExisting(t *testing.T) {
	var s VMASet
	s.Insert(&VMA{Start: 0x1000, End: 0x2000})

	got, ok := s.Empty(0x1000, 0x1000)
	require.True(t, ok)
	assert.EqualValues(t, 0x2000, got, "candidate must skip past the occupied VMA")
}

func TestVMASetEmptyFailsPastUserTop(t *testing.T) {
	var s VMASet
	_, ok := s.Empty(mem.UserTop-0x500, 0x1000)
	assert.False(t, ok)
}

func TestASAccessOKRejectsOutOfRangeAndUnmapped(t *testing.T) {
	var a AS
	a.Regions.Insert(&VMA{Start: 0x1000, End: 0x2000, Perm: PermR})

	assert.False(t, a.accessOK(0, 4, false), "null pointer")
	assert.False(t, a.accessOK(0x500, 4, false), "before any VMA")
	assert.False(t, a.accessOK(0x1ffe, 4, false), "spans past the VMA's end")
	assert.True(t, a.accessOK(0x1000, 4, false), "fully inside, read")
	assert.False(t, a.accessOK(0x1000, 4, true), "write to a read-only VMA")
}

func TestASAccessOKWritePermitted(t *testing.T) {
	var a AS
	a.Regions.Insert(&VMA{Start: 0x1000, End: 0x2000, Perm: PermR | PermW})
	assert.True(t, a.accessOK(0x1000, 4, true))
}

func TestASAccessOKRejectsNegativeLength(t *testing.T) {
	var a AS
	a.Regions.Insert(&VMA{Start: 0x1000, End: 0x2000, Perm: PermR})
	assert.False(t, a.accessOK(0x1000, 0, false))
	assert.False(t, a.accessOK(0x1000, -1, false))
}

func TestASAddAnonRoundsUpToPageSize(t *testing.T) {
	var a AS
	v := a.AddAnon(0x1000, 1, PermR|PermW)
	assert.EqualValues(t, 0x1000, v.Start)
	assert.EqualValues(t, 0x1000+mem.PGSIZE, v.End)
}

// fakeStore/fakeFrames stand in for the real temp-arena-backed PTStore and
// Physmem_t FrameOwner: NewDirectory and FreeUserSpace only ever go through
// these two interfaces (never isCurrent/cpu.ReadCR3), so AS.FreeAll is
// exercisable hosted despite living in a package whose other methods
// (Fork, WriteBytes, ReadBytes, Grow) need real paging hardware.
type fakeStore struct {
	words map[mem.Pa_t]map[int]mem.PTE
}

func newFakeStore() *fakeStore { return &fakeStore{words: map[mem.Pa_t]map[int]mem.PTE{}} }

func (f *fakeStore) Word(pa mem.Pa_t, idx int) mem.PTE {
	row, ok := f.words[pa]
	if !ok {
		return 0
	}
	return row[idx]
}

func (f *fakeStore) SetWord(pa mem.Pa_t, idx int, v mem.PTE) {
	row, ok := f.words[pa]
	if !ok {
		row = map[int]mem.PTE{}
		f.words[pa] = row
	}
	row[idx] = v
}

func (f *fakeStore) ZeroFrame(pa mem.Pa_t) { f.words[pa] = map[int]mem.PTE{} }

type fakeFrames struct {
	next  mem.Pa_t
	freed []mem.Pa_t
}

func (f *fakeFrames) AllocFrame() (mem.Pa_t, bool) {
	f.next += mem.PGSIZE
	return f.next, true
}

func (f *fakeFrames) FreeFrame(pa mem.Pa_t) { f.freed = append(f.freed, pa) }

func TestNewASAllocatesDirectoryAndSharesKernelPDEs(t *testing.T) {
	store := newFakeStore()
	frames := &fakeFrames{}
	const kernelPD = mem.Pa_t(0x500)
	store.SetWord(kernelPD, mem.UserTopPDE, mem.MkPTE(0x7000, mem.PTE_P|mem.PTE_W))
	engine := &mem.Engine{Store: store, Frames: frames, KernelPD: kernelPD}

	as, err := NewAS(engine, frames, nil)
	require.NoError(t, err)
	assert.NotZero(t, as.PD)
	assert.Equal(t, store.Word(kernelPD, mem.UserTopPDE), store.Word(as.PD, mem.UserTopPDE),
		"kernel PDEs must be copied into every new directory")
}

func TestASFreeAllTearsDownEngineAndFramesAndRegions(t *testing.T) {
	store := newFakeStore()
	frames := &fakeFrames{}
	engine := &mem.Engine{Store: store, Frames: frames}

	as, err := NewAS(engine, frames, nil)
	require.NoError(t, err)
	as.Regions.Insert(&VMA{Start: 0x1000, End: 0x2000})

	pt := mem.Pa_t(0x8000)
	store.SetWord(as.PD, 0, mem.MkPTE(pt, mem.PTE_P|mem.PTE_W|mem.PTE_U))
	store.SetWord(pt, 0, mem.MkPTE(0x40000, mem.PTE_P|mem.PTE_W|mem.PTE_U))

	as.FreeAll()

	assert.Contains(t, frames.freed, mem.Pa_t(0x40000))
	assert.Contains(t, frames.freed, pt)
	assert.Contains(t, frames.freed, as.PD, "the page directory frame itself is freed")
	assert.Empty(t, as.Regions.areas)
}
