// Package signal implements signal sending, default-action handling, and
// custom-handler delivery on the kernel→user return path (spec §4.10).
// Built fresh from the spec text: the teacher hosts process control atop a
// modified Go runtime and has no equivalent of a user-deliverable signal.
package signal

import (
	"coalos/defs"
	"coalos/proc"
	"coalos/sched"
)

// Send sets sig's pending bit on target (spec §4.10 Sending: "bit in
// pending_signals is set under the target's signal lock"). If the target
// is SLEEPING, it is woken so delivery gets a chance to run on its next
// kernel→user return.
func Send(s *sched.Scheduler, pcb *proc.PCB, tcb *proc.TCB, sig int) defs.Err_t {
	if sig <= 0 || sig >= defs.NSIG {
		return -defs.EINVAL
	}
	pcb.Sig.Lock()
	pcb.Sig.Pending |= 1 << uint(sig-1)
	pcb.Sig.Unlock()

	s.Wake(tcb)
	return 0
}

// lowestSet returns the 1-based signal number of the lowest set bit in
// bits, or 0 if bits is zero.
func lowestSet(bits uint32) int {
	for i := 0; i < 32; i++ {
		if bits&(1<<uint(i)) != 0 {
			return i + 1
		}
	}
	return 0
}
