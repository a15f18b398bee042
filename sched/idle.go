package sched

import (
	"coalos/cpu"
	"coalos/proc"
)

// Idle is the idle task's body (spec §4.7 "the idle loop scans the global
// task list for zombies"): halt until the next interrupt, then reap every
// zombie in the process table whose parent is no longer in the table.
// Never returns; invoked once, as the
// very last step of boot, on the idle task's own kernel stack.
func (s *Scheduler) Idle() {
	for {
		cpu.Hlt()
		s.reapZombies()
	}
}

// reapZombies walks the process table (Table.Each). A zombie whose parent
// is still in the table is left alone: an orphan reparented to PID 1 is
// harvested once PID 1 calls waitpid. A zombie
// is only actually destroyed here if it has no parent left in the table
// (spec §4.7 "destroy_process (frees MM, fd table, kernel stack, PCB,
// TCB)"); the common case — a live parent calling waitpid — reaps via
// proc.Waitpid instead, which calls proc.Reap directly.
func (s *Scheduler) reapZombies() {
	s.Lock()
	table := s.table
	s.Unlock()
	if table == nil {
		return
	}

	// Collect first, reap after: Table.Remove during Each's own traversal
	// would mutate the bucket chains Iter is walking.
	type orphan struct {
		pcb *proc.PCB
		tcb *proc.TCB
	}
	var orphans []orphan
	table.Each(func(pcb *proc.PCB, tcb *proc.TCB) {
		pcb.Lock()
		isZombie := pcb.PState == proc.PZombie
		parentID := pcb.ParentID
		pcb.Unlock()
		if !isZombie {
			return
		}
		if _, _, ok := table.Get(parentID); !ok {
			orphans = append(orphans, orphan{pcb, tcb})
		}
	})
	for _, o := range orphans {
		proc.Reap(table, o.pcb, o.tcb)
	}
}
