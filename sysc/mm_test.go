package sysc

import (
	"testing"

	"coalos/defs"
	"coalos/mem"
	"coalos/proc"
	"coalos/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore/fakeFrames mirror mem/pagetable_test.go's and vm/as_test.go's
// doubles (duplicated rather than shared since the fields NewAS needs are
// unexported across package boundaries): enough for vm.NewAS to hand back a
// real *vm.AS without ever touching real paging hardware.
type fakeStore struct {
	words map[mem.Pa_t]map[int]mem.PTE
}

func newFakeStore() *fakeStore { return &fakeStore{words: map[mem.Pa_t]map[int]mem.PTE{}} }

func (f *fakeStore) Word(pa mem.Pa_t, idx int) mem.PTE {
	if m, ok := f.words[pa]; ok {
		return m[idx]
	}
	return 0
}

func (f *fakeStore) SetWord(pa mem.Pa_t, idx int, v mem.PTE) {
	m, ok := f.words[pa]
	if !ok {
		m = map[int]mem.PTE{}
		f.words[pa] = m
	}
	m[idx] = v
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

func mkFakeAS(t *testing.T) *vm.AS {
	t.Helper()
	engine := &mem.Engine{Store: newFakeStore(), Frames: &fakeFrames{}}
	as, err := vm.NewAS(engine, &fakeFrames{}, nil)
	require.NoError(t, err)
	return as
}

// sysBrk's addr==0 path only locks AS and reads EndBrk — never reaches
// AS.Grow's MapAnon call, so it needs no real paging hardware.
func TestSysBrkZeroAddrReturnsCurrentBreakWithoutGrowing(t *testing.T) {
	as := mkFakeAS(t)
	as.EndBrk = 0x5000

	pcb := proc.NewPCB(1, 0, nil)
	pcb.AS = as
	tcb := proc.NewTCB(1, pcb, proc.PrioNormal)

	ret := sysBrk(pcb, tcb, nil, Args{A0: 0})
	assert.EqualValues(t, 0x5000, ret)
}

// sysMmap's validation (non-anonymous flags, non-positive length) returns
// before ever touching pcb.AS, so pcb can be left with a nil AS here.
func TestSysMmapRejectsNonAnonymousMapping(t *testing.T) {
	pcb := proc.NewPCB(1, 0, nil)
	tcb := proc.NewTCB(1, pcb, proc.PrioNormal)

	ret := sysMmap(pcb, tcb, nil, Args{A1: 4096, A3: 0})
	assert.EqualValues(t, int32(-defs.EINVAL), ret)
}

func TestSysMmapRejectsNonPositiveLength(t *testing.T) {
	pcb := proc.NewPCB(1, 0, nil)
	tcb := proc.NewTCB(1, pcb, proc.PrioNormal)

	ret := sysMmap(pcb, tcb, nil, Args{A1: 0, A3: uintptr(defs.MAP_ANONYMOUS)})
	assert.EqualValues(t, int32(-defs.EINVAL), ret)

	ret = sysMmap(pcb, tcb, nil, Args{A1: ^uintptr(0), A3: uintptr(defs.MAP_ANONYMOUS)})
	assert.EqualValues(t, int32(-defs.EINVAL), ret)
}
