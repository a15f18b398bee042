package proc

import (
	"testing"
	"unsafe"

	"coalos/defs"
	"coalos/mem"
	"coalos/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore/fakeFrames mirror the ones in mem/pagetable_test.go and
// vm/as_test.go: NewDirectory/FreeUserSpace only ever go through these two
// interfaces, never isCurrent/cpu.ReadCR3, so they can back a real
// *mem.Engine and *vm.AS in a hosted test.
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

// heapBacking allocates a real Go-owned buffer to back a *mem.Buddy, the
// same trick mem/slab_test.go uses, so proc.KStacks can be a real
// *mem.Allocator during Reap's freeKStack call.
func heapBacking(t *testing.T, size int) mem.Va_t {
	t.Helper()
	buf := make([]byte, size)
	return mem.Va_t(uintptr(unsafe.Pointer(&buf[0])))
}

func withKStacks(t *testing.T) {
	t.Helper()
	base := heapBacking(t, 1<<(mem.MinOrder+2))
	b := mem.NewBuddy(base, 1<<(mem.MinOrder+2))
	prev := KStacks
	KStacks = mem.NewAllocator(b)
	t.Cleanup(func() { KStacks = prev })
}

func mkTestAS(t *testing.T) (*vm.AS, *fakeFrames) {
	t.Helper()
	store := newFakeStore()
	frames := &fakeFrames{}
	engine := &mem.Engine{Store: store, Frames: frames}
	as, err := vm.NewAS(engine, frames, nil)
	require.NoError(t, err)
	return as, frames
}

func TestReapFreesAddressSpaceAndKernelStackAndRemovesFromTable(t *testing.T) {
	withKStacks(t)
	tab := NewTable()
	as, frames := mkTestAS(t)

	kstack, kerr := allocKStack()
	require.Zero(t, kerr)

	pcb := NewPCB(7, 1, as)
	pcb.KStackTop = kstack + KStackSize
	tcb := NewTCB(7, pcb, PrioNormal)
	tab.Insert(pcb, tcb)

	Reap(tab, pcb, tcb)

	assert.Contains(t, frames.freed, as.PD, "address space's page directory frame is freed")
	_, _, ok := tab.Get(7)
	assert.False(t, ok, "reaped process must be removed from the table")
}

func TestExitMarksZombieOrphansChildrenAndSignalsParent(t *testing.T) {
	tab := NewTable()
	parent := NewPCB(1, 0, nil)
	parentTCB := NewTCB(1, parent, PrioNormal)
	tab.Insert(parent, parentTCB)

	initPCB := NewPCB(defs.PidInit, defs.PidInit, nil)
	tab.Insert(initPCB, NewTCB(defs.PidInit, initPCB, PrioNormal))

	child := NewPCB(2, 1, nil)
	childTCB := NewTCB(2, child, PrioNormal)
	tab.Insert(child, childTCB)
	parent.AddChild(2)

	grandchild := NewPCB(3, 2, nil)
	grandchildTCB := NewTCB(3, grandchild, PrioNormal)
	tab.Insert(grandchild, grandchildTCB)
	child.AddChild(3)

	Exit(tab, child, childTCB, 5)

	assert.Equal(t, PZombie, child.PState)
	assert.Equal(t, 5, child.ExitCode)
	assert.Equal(t, StateZombie, childTCB.State)
	assert.Equal(t, defs.PidInit, grandchild.ParentID, "orphan reparented to init")
	assert.Contains(t, initPCB.Children, defs.Pid_t(3))

	parent.Sig.Lock()
	pending := parent.Sig.Pending
	parent.Sig.Unlock()
	assert.NotZero(t, pending&(1<<(defs.SIGCHLD-1)), "SIGCHLD raised on the parent")

	select {
	case <-parent.WaitCh:
	default:
		t.Fatal("parent's WaitCh must have a pending wakeup")
	}
}

func TestWaitpidNoChildrenReturnsECHILD(t *testing.T) {
	tab := NewTable()
	parent := NewPCB(1, 0, nil)
	_, _, err := Waitpid(tab, parent, -1)
	assert.Equal(t, -defs.ECHILD, err)
}

func TestWaitpidReapsMatchingZombieChild(t *testing.T) {
	withKStacks(t)
	tab := NewTable()
	parent := NewPCB(1, 0, nil)
	tab.Insert(parent, NewTCB(1, parent, PrioNormal))

	as, _ := mkTestAS(t)
	kstack, _ := allocKStack()
	child := NewPCB(2, 1, as)
	child.KStackTop = kstack + KStackSize
	child.PState = PZombie
	child.ExitCode = 9
	childTCB := NewTCB(2, child, PrioNormal)
	tab.Insert(child, childTCB)
	parent.AddChild(2)

	pid, code, err := Waitpid(tab, parent, -1)
	require.Zero(t, err)
	assert.Equal(t, defs.Pid_t(2), pid)
	assert.Equal(t, 9, code)
	assert.NotContains(t, parent.Children, defs.Pid_t(2))
	_, _, ok := tab.Get(2)
	assert.False(t, ok, "waitpid reaps the zombie it collects")
}

func TestWaitpidNonZombieChildReturnsEAGAIN(t *testing.T) {
	tab := NewTable()
	parent := NewPCB(1, 0, nil)
	tab.Insert(parent, NewTCB(1, parent, PrioNormal))
	child := NewPCB(2, 1, nil)
	tab.Insert(child, NewTCB(2, child, PrioNormal))
	parent.AddChild(2)

	_, _, err := Waitpid(tab, parent, -1)
	assert.Equal(t, -defs.EAGAIN, err)
}

func TestWaitpidSpecificMissingPIDReturnsECHILD(t *testing.T) {
	tab := NewTable()
	parent := NewPCB(1, 0, nil)
	tab.Insert(parent, NewTCB(1, parent, PrioNormal))
	_, _, err := Waitpid(tab, parent, 99)
	assert.Equal(t, -defs.ECHILD, err)
}
