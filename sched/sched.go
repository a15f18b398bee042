// Package sched implements the priority-preemptive scheduler (spec §4.7):
// four fixed-priority FIFO run queues, a wakeup-ordered sleep queue, the
// tick handler, priority inheritance, and the idle task's zombie-reaping
// loop. The teacher has no equivalent package — Biscuit rides its modified
// Go runtime's own goroutine scheduler instead — so this is built fresh
// from spec §4.7, reusing the embedded-mutex idiom the rest of the tree
// uses for every shared structure.
package sched

import (
	"sync"

	"coalos/cpu"
	"coalos/proc"
)

// Scheduler owns every run/sleep/all-tasks queue and the currently running
// task. Exactly one instance exists system-wide — Non-goals §1 excludes
// SMP, so there is no per-CPU run queue to keep separate.
type Scheduler struct {
	sync.Mutex

	runHead, runTail [proc.NumPriorities]*proc.TCB
	sleepHead        *proc.TCB
	allHead          *proc.TCB

	now     uint32 // milliseconds since boot (spec §4.7 "unsigned 32-bit")
	current *proc.TCB
	idle    *proc.TCB

	reschedule bool

	table *proc.Table
}

// TSS is the single Task State Segment whose Esp0 every dispatch updates
// (spec §4.7 "TSS.esp0 is updated... before the switch"), wired once by
// boot.Sequence.
var TSS *cpu.TSS_t

var global *Scheduler

// Init installs the system scheduler and its idle task (PID 0, kept
// outside every run queue per spec §4.7 "the idle task... returned" when
// every queue is empty).
func Init(table *proc.Table, idle *proc.TCB) *Scheduler {
	idle.State = proc.StateRunning
	idle.HasRun = true
	global = &Scheduler{table: table, idle: idle, current: idle, allHead: idle}
	return global
}

// Get returns the system scheduler installed by Init.
func Get() *Scheduler { return global }

// Current returns the task presently running on the CPU.
func (s *Scheduler) Current() *proc.TCB {
	s.Lock()
	defer s.Unlock()
	return s.current
}

// Track adds t to the all-tasks list the idle loop's zombie scan walks
// (spec §4.7 "the idle loop scans the global task list for zombies").
// Called once, when a task is first created.
func (s *Scheduler) Track(t *proc.TCB) {
	s.Lock()
	defer s.Unlock()
	t.AllNext = s.allHead
	s.allHead = t
}

// Now reports the scheduler's millisecond tick counter.
func (s *Scheduler) Now() uint32 {
	s.Lock()
	defer s.Unlock()
	return s.now
}
