package proc

import (
	"sync"
	"sync/atomic"

	"coalos/defs"
	"coalos/hashtable"
)

// Table is the PID-indexed process table (spec §3, Design Note 3:
// "pointer-graph hierarchy -> PID-indexed proc.Table"). It replaces the
// source's parent/sibling pointer graph: every lookup goes through PID, so
// a crashed or reparented process can never leave a dangling pointer
// behind — only a stale table entry, which Exit/Reap clean up explicitly.
type Table struct {
	ht      *hashtable.Hashtable_t
	nextPID int32
}

// entry bundles one process's PCB and TCB under a single table slot.
type entry struct {
	PCB *PCB
	TCB *TCB
}

// NumBuckets sizes the backing hashtable; Coal OS is a teaching kernel, not
// a multi-tenant server, so a modest fixed bucket count is plenty.
const NumBuckets = 256

// NewTable creates an empty process table.
func NewTable() *Table {
	return &Table{ht: hashtable.MkHash(NumBuckets), nextPID: int32(defs.PidInit)}
}

// AllocPID reserves the next PID (spec §3, monotonically increasing —
// simpler than the teacher's freelist-based PID reuse, and sufficient
// since Non-goals exclude long-running reuse-sensitive workloads).
func (t *Table) AllocPID() defs.Pid_t {
	return defs.Pid_t(atomic.AddInt32(&t.nextPID, 1) - 1)
}

// Insert adds pcb/tcb under pcb.PID. If the PID is already present the
// existing entry is kept and the new one is dropped, without error
// (AllocPID guarantees uniqueness, so this only happens on a logic error).
func (t *Table) Insert(pcb *PCB, tcb *TCB) {
	t.ht.SetPid(pcb.PID, &entry{PCB: pcb, TCB: tcb})
}

// Get looks up both the PCB and TCB for pid.
func (t *Table) Get(pid defs.Pid_t) (*PCB, *TCB, bool) {
	v, ok := t.ht.GetPid(pid)
	if !ok {
		return nil, nil, false
	}
	e := v.(*entry)
	return e.PCB, e.TCB, true
}

// Remove deletes pid's table entry (called by the idle task's zombie-reap
// loop once a parent has collected its exit status, spec §4.7 [EXPANSION]).
func (t *Table) Remove(pid defs.Pid_t) {
	t.ht.DelPid(pid)
}

// Each visits every (PCB, TCB) pair currently in the table. Used by the
// idle task's zombie reaper and by kill's process-group and kill(-1, sig)
// broadcast forms.
func (t *Table) Each(f func(*PCB, *TCB)) {
	t.ht.Iter(func(_ interface{}, v interface{}) bool {
		e := v.(*entry)
		f(e.PCB, e.TCB)
		return false
	})
}

// Size reports the number of live table entries.
func (t *Table) Size() int { return t.ht.Size() }

// global is the single system-wide process table, installed once at boot.
var global *Table
var globalOnce sync.Once

// Global returns the system-wide process table, creating it on first call.
func Global() *Table {
	globalOnce.Do(func() { global = NewTable() })
	return global
}
