package sched

import "coalos/proc"

// Wake moves t back to READY regardless of whether it was SLEEPING or
// BLOCKED, unlinking it from the sleep queue first if needed. Used by
// signal delivery's "if the target is SLEEPING, a wake-up request is
// raised" (spec §4.10) and by SIGCONT continuing a stopped task.
func (s *Scheduler) Wake(t *proc.TCB) {
	s.Lock()
	t.Lock()
	sleeping := t.State == proc.StateSleeping
	already := t.State == proc.StateReady || t.State == proc.StateRunning
	t.Unlock()
	if sleeping {
		s.removeSleepLocked(t)
	}
	s.Unlock()
	if already {
		return
	}
	s.Unblock(t)
}
