package sched

// Tick is scheduler_tick (spec §4.7): invoked at 1 kHz from the timer IRQ
// (wired by boot.Sequence to irq.TickFn). It advances the millisecond
// clock, requeues any sleepers whose wakeup has arrived, and decrements
// the running task's remaining time slice, raising the reschedule flag on
// expiry. The actual switch happens later, at the next syscall-return or
// yield checkpoint (spec §4.9 "checked on every kernel→user return") —
// Tick itself never calls Yield, since it runs on the interrupted task's
// own kernel stack mid-interrupt.
func (s *Scheduler) Tick() {
	s.Lock()
	s.now++
	due := s.wakeDueLocked()
	cur := s.current
	s.Unlock()

	for _, t := range due {
		s.Enqueue(t)
	}

	if cur == s.idle {
		return
	}

	cur.Lock()
	if cur.TicksLeft > 0 {
		cur.TicksLeft--
	}
	expired := cur.TicksLeft == 0
	cur.Unlock()

	if expired {
		s.Lock()
		s.reschedule = true
		s.Unlock()
	}
}

// NeedsResched reports whether a reschedule has been requested since the
// last Yield — consulted by the syscall dispatcher's return path.
func (s *Scheduler) NeedsResched() bool {
	s.Lock()
	defer s.Unlock()
	return s.reschedule
}
