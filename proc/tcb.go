// Package proc holds the per-process control state: the TCB the scheduler
// dispatches, the PCB that owns address space and file descriptors, and
// the PID-indexed table that replaces the source's pointer-graph process
// hierarchy (spec §3 PCB/TCB, Design Note 3).
package proc

import (
	"sync"

	"coalos/cpu"
	"coalos/defs"
)

// State is a TCB's scheduling state (spec §3 "state ∈ {running, ready,
// sleeping, zombie, exiting}" — RUNNING/EXITING folded in at the PCB level,
// TCB tracks only what the scheduler must act on).
type State int

const (
	StateReady State = iota
	StateRunning
	StateSleeping
	StateBlocked
	StateZombie
)

// Priority levels (spec §3 "Run queue. ... four levels, 0 highest").
type Priority int

const (
	PrioHigh Priority = iota
	PrioNormal
	PrioLow
	PrioIdle
	NumPriorities
)

// SliceMS gives each priority's fixed time slice in milliseconds (spec
// §4.7 "Time slice... 200/100/50/25 ms").
var SliceMS = [NumPriorities]uint32{200, 100, 50, 25}

// TCB is the scheduler's view of one schedulable entity — one per process
// in this kernel (spec §3). Context is the sole representation of a
// suspended task's CPU state; everything else lives on the kernel stack it
// points into.
type TCB struct {
	sync.Mutex

	PID  defs.Pid_t
	PCB  *PCB
	Ctx  cpu.Context

	State      State
	InRunQueue bool
	HasRun     bool // false until this task's first-ever dispatch (spec §4.7)
	ForkChild  bool // true if this task's first dispatch must report EAX=0

	Priority     Priority
	BasePriority Priority
	TicksLeft    uint32
	WakeupTick   uint32
	ExitCode     int

	// sleep queue links (doubly-linked, ascending WakeupTick — spec §3).
	// Exported for package sched, which owns queue management; proc itself
	// never walks these.
	SleepPrev, SleepNext *TCB

	// run queue link (singly-linked FIFO per priority — spec §3)
	RunNext *TCB

	// priority inheritance bookkeeping: the task this one is blocked
	// waiting on, and the set of tasks waiting on this one, grounded on
	// the teacher's Distinct_caller_t mutex+collection shape.
	BlockingOn *TCB
	Blocked    []*TCB

	AllNext *TCB // global all-tasks link (spec §3)
}

// NewTCB allocates a TCB for pcb at the given base priority, not yet
// inserted into any queue or the all-tasks list.
func NewTCB(pid defs.Pid_t, pcb *PCB, prio Priority) *TCB {
	return &TCB{
		PID:          pid,
		PCB:          pcb,
		State:        StateReady,
		Priority:     prio,
		BasePriority: prio,
		TicksLeft:    SliceMS[prio],
	}
}

// EffectivePriority is prio, possibly raised by priority inheritance
// (never lowered below BasePriority — spec §3 "base/effective priority").
func (t *TCB) EffectivePriority() Priority {
	return t.Priority
}
