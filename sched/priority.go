package sched

import "coalos/proc"

// Acquire implements priority inheritance's donation half (spec §4.7):
// "when task W begins waiting on a resource held by task H with prio(H) >
// prio(W)" (numerically greater = less urgent), H's effective priority is
// temporarily raised to W's, and H is re-enqueued under the new priority
// if it is currently READY.
func (s *Scheduler) Acquire(holder, waiter *proc.TCB) {
	holder.Lock()
	waiter.Lock()
	holder.Blocked = append(holder.Blocked, waiter)
	waiter.BlockingOn = holder
	donate := holder.Priority > waiter.Priority
	wasReady := holder.InRunQueue
	if donate {
		holder.Priority = waiter.Priority
	}
	waiter.Unlock()
	holder.Unlock()

	if donate && wasReady {
		s.requeue(holder)
	}
}

// Release reverts holder's effective priority once waiter stops blocking
// on it — back to BasePriority, or to the next-most-urgent remaining
// waiter's priority if others are still queued (spec §4.7 "When H
// releases, effective_priority reverts to base_priority and H is
// re-enqueued accordingly").
func (s *Scheduler) Release(holder, waiter *proc.TCB) {
	holder.Lock()
	for i, b := range holder.Blocked {
		if b == waiter {
			holder.Blocked = append(holder.Blocked[:i], holder.Blocked[i+1:]...)
			break
		}
	}
	min := holder.BasePriority
	for _, b := range holder.Blocked {
		b.Lock()
		if b.Priority < min {
			min = b.Priority
		}
		b.Unlock()
	}
	changed := holder.Priority != min
	wasReady := holder.InRunQueue
	holder.Priority = min
	holder.Unlock()

	waiter.Lock()
	waiter.BlockingOn = nil
	waiter.Unlock()

	if changed && wasReady {
		s.requeue(holder)
	}
}

// requeue removes t from whichever run queue it currently sits in and
// re-enqueues it under its (possibly just-changed) priority.
func (s *Scheduler) requeue(t *proc.TCB) {
	s.Lock()
	s.removeFromRunQueueLocked(t)
	s.Unlock()
	s.Enqueue(t)
}

// removeFromRunQueueLocked unlinks t from its run queue, if present.
// Caller must hold s.Mutex.
func (s *Scheduler) removeFromRunQueueLocked(t *proc.TCB) {
	for p := proc.Priority(0); p < proc.NumPriorities; p++ {
		var prev *proc.TCB
		for cur := s.runHead[p]; cur != nil; cur = cur.RunNext {
			if cur == t {
				if prev == nil {
					s.runHead[p] = cur.RunNext
				} else {
					prev.RunNext = cur.RunNext
				}
				if s.runTail[p] == cur {
					s.runTail[p] = prev
				}
				cur.RunNext = nil
				return
			}
			prev = cur
		}
	}
}
