package testkit

import "coalos/irq"

// AdvanceTicks invokes irq.TickFn n times, standing in for n real timer
// IRQs (spec §4.7's 1kHz tick) without needing the 8259/PIT hardware or a
// real interrupt to fire. It does nothing unless irq.TickFn has been set
// (boot.Sequence sets it to the scheduler's Tick; sched.Init does not).
func AdvanceTicks(n int) {
	for i := 0; i < n; i++ {
		if irq.TickFn != nil {
			irq.TickFn()
		}
	}
}
