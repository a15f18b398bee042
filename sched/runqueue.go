package sched

import (
	"coalos/cpu"
	"coalos/proc"
)

// Enqueue places t at the FIFO tail of its priority's run queue and marks
// it READY (spec §4.7 run queue: "four levels, 0 highest... FIFO").
func (s *Scheduler) Enqueue(t *proc.TCB) {
	s.Lock()
	defer s.Unlock()
	s.enqueueLocked(t)
}

func (s *Scheduler) enqueueLocked(t *proc.TCB) {
	t.Lock()
	prio := t.EffectivePriority()
	t.State = proc.StateReady
	t.InRunQueue = true
	t.RunNext = nil
	t.Unlock()

	if s.runTail[prio] == nil {
		s.runHead[prio] = t
	} else {
		s.runTail[prio].RunNext = t
	}
	s.runTail[prio] = t
}

// selectNext scans priorities 0..N-1 for the first non-empty queue's FIFO
// head (spec §4.7 select_next_task). Returns the idle task, kept outside
// every queue, if all are empty. Caller must hold s.Mutex.
func (s *Scheduler) selectNext() *proc.TCB {
	for p := proc.Priority(0); p < proc.NumPriorities; p++ {
		head := s.runHead[p]
		if head == nil {
			continue
		}
		s.runHead[p] = head.RunNext
		if s.runHead[p] == nil {
			s.runTail[p] = nil
		}
		head.RunNext = nil
		head.InRunQueue = false
		return head
	}
	return s.idle
}

// Yield voluntarily gives up the CPU: if the running task is still
// runnable it is re-enqueued READY, then the next task is dispatched.
// Called by the syscall dispatcher at the end of a syscall when the task
// has exited or been terminated or a reschedule is due; Block and Sleep
// dispatch the next task themselves.
func (s *Scheduler) Yield() {
	s.Lock()
	cur := s.current
	s.Unlock()

	if cur != s.idle && cur.State == proc.StateRunning {
		s.Enqueue(cur)
	}
	s.dispatchNext(cur)
}

// dispatchNext picks the next task and switches the CPU to it, updating
// TSS.esp0 first (spec §4.7). from is the outgoing task whose context is
// saved; its Ctx field is written by the underlying assembly Switch.
func (s *Scheduler) dispatchNext(from *proc.TCB) {
	s.Lock()
	next := s.selectNext()
	next.Lock()
	next.State = proc.StateRunning
	next.TicksLeft = proc.SliceMS[next.EffectivePriority()]
	next.Unlock()
	s.current = next
	s.reschedule = false
	s.Unlock()

	if TSS != nil && next.PCB != nil {
		cpu.SetKernelStack(TSS, next.PCB.KStackTop)
	}
	proc.Dispatch(&from.Ctx, next)
}

// Start launches the very first task the system ever dispatches (PID 1's
// init, spec §2 "the kernel... launches /init"). It never returns: control
// passes to EnterUser's IRET.
func (s *Scheduler) Start(first *proc.TCB) {
	s.Lock()
	s.current = first
	first.State = proc.StateRunning
	s.Unlock()

	if TSS != nil && first.PCB != nil {
		cpu.SetKernelStack(TSS, first.PCB.KStackTop)
	}
	var throwaway cpu.Context
	proc.Dispatch(&throwaway, first)
}

// Block removes the current task from scheduling (moved to BLOCKED, spec
// §4.7 "A task can be moved from READY/RUNNING to BLOCKED by a wait
// primitive") and switches away. The caller is responsible for arranging
// some other task to eventually call Unblock(t).
func (s *Scheduler) Block(t *proc.TCB) {
	t.Lock()
	t.State = proc.StateBlocked
	t.Unlock()
	s.dispatchNext(t)
}

// Unblock moves t from BLOCKED back to READY and raises the reschedule
// flag (spec §4.7 "unblock(task) puts it back READY and raises the
// reschedule flag").
func (s *Scheduler) Unblock(t *proc.TCB) {
	t.Lock()
	t.State = proc.StateReady
	t.Unlock()
	s.Enqueue(t)
	s.Lock()
	s.reschedule = true
	s.Unlock()
}
