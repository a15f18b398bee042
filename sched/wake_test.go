package sched

import (
	"testing"

	"coalos/proc"

	"github.com/stretchr/testify/assert"
)

func TestWakeUnlinksSleeperAndMovesToReady(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	a.State = proc.StateSleeping
	a.WakeupTick = 1000
	s.Lock()
	s.insertSleepLocked(a)
	s.Unlock()

	s.Wake(a)

	assert.Equal(t, proc.StateReady, a.State)
	assert.Nil(t, s.sleepHead, "removed from the sleep queue")
	got := s.selectNext()
	assert.Same(t, a, got)
}

func TestWakeBlockedTaskGoesThroughUnblock(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	a.State = proc.StateBlocked
	s.Wake(a)

	assert.Equal(t, proc.StateReady, a.State)
	assert.True(t, s.NeedsResched())
}

func TestWakeNoopWhenAlreadyReadyOrRunning(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	a.State = proc.StateReady
	s.Wake(a)
	assert.False(t, s.NeedsResched(), "already runnable, Wake must not re-enqueue or disturb it")
}
