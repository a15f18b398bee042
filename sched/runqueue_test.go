package sched

import (
	"testing"

	"coalos/proc"

	"github.com/stretchr/testify/assert"
)

func mkSched() *Scheduler {
	idle := proc.NewTCB(0, nil, proc.PrioIdle)
	return Init(nil, idle)
}

func TestEnqueueFIFOWithinPriority(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	b := proc.NewTCB(2, nil, proc.PrioNormal)
	s.Enqueue(a)
	s.Enqueue(b)

	got := s.selectNext()
	assert.Same(t, a, got)
	got = s.selectNext()
	assert.Same(t, b, got)
}

func TestEnqueueMarksStateReadyAndInRunQueue(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	a.State = proc.StateBlocked
	s.Enqueue(a)
	assert.Equal(t, proc.StateReady, a.State)
	assert.True(t, a.InRunQueue)
}

func TestSelectNextPrefersHigherPriority(t *testing.T) {
	s := mkSched()
	lo := proc.NewTCB(1, nil, proc.PrioLow)
	hi := proc.NewTCB(2, nil, proc.PrioHigh)
	s.Enqueue(lo)
	s.Enqueue(hi)

	got := s.selectNext()
	assert.Same(t, hi, got, "PrioHigh (0) must be selected before PrioLow")
}

func TestSelectNextReturnsIdleWhenAllQueuesEmpty(t *testing.T) {
	s := mkSched()
	got := s.selectNext()
	assert.Same(t, s.idle, got)
}

func TestSelectNextClearsInRunQueue(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	s.Enqueue(a)
	s.selectNext()
	assert.False(t, a.InRunQueue)
	assert.Nil(t, a.RunNext)
}

func TestUnblockMovesToReadyAndRaisesReschedule(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	a.State = proc.StateBlocked
	s.Unblock(a)

	assert.Equal(t, proc.StateReady, a.State)
	assert.True(t, s.NeedsResched())
	got := s.selectNext()
	assert.Same(t, a, got)
}

func TestTrackAddsToAllTasksList(t *testing.T) {
	s := mkSched()
	a := proc.NewTCB(1, nil, proc.PrioNormal)
	s.Track(a)
	assert.Same(t, a, s.allHead)
	assert.Same(t, s.idle, a.AllNext)
}

func TestCurrentReflectsInitIdle(t *testing.T) {
	s := mkSched()
	assert.Same(t, s.idle, s.Current())
}
