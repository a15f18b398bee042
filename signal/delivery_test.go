package signal

import (
	"testing"

	"coalos/defs"
	"coalos/proc"
	"coalos/sched"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkDeliverable wires up a scheduler+table+PCB/TCB pair good enough for
// Deliver's non-custom-handler paths (SIG_IGN, and SIG_DFL's ActIgn/ActCont/
// ActTerm/ActCore branches, none of which touch an address space). The
// ActStop branch and custom-handler delivery both reach a real context
// switch or pcb.AS.WriteBytes/Translate (gated on a live CR3) and so are not
// exercised here — see DESIGN.md's test-coverage notes.
func mkDeliverable(t *testing.T) (*sched.Scheduler, *proc.Table, *proc.PCB, *proc.TCB) {
	t.Helper()
	table := proc.NewTable()
	idle := proc.NewTCB(0, nil, proc.PrioIdle)
	s := sched.Init(table, idle)
	pcb := proc.NewPCB(1, 0, nil)
	tcb := proc.NewTCB(1, pcb, proc.PrioNormal)
	table.Insert(pcb, tcb)
	return s, table, pcb, tcb
}

func TestDeliverNoPendingSignalReturnsFalse(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
}

func TestDeliverSuppressedWhileAlreadyInSignalHandler(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGTERM-1)
	pcb.Sig.InSignalHandler = 1

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
	assert.NotZero(t, pcb.Sig.Pending, "signal stays pending, not consumed")
}

func TestDeliverMaskedSignalNotDelivered(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGTERM-1)
	pcb.Sig.Mask |= 1 << uint(defs.SIGTERM-1)

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
}

func TestDeliverUncatchableSignalIgnoresMask(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGKILL-1)
	pcb.Sig.Mask |= 1 << uint(defs.SIGKILL-1) // SIGKILL can't be masked

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.True(t, terminated, "SIGKILL's default action is terminate")
}

func TestDeliverSigIgnHandlerConsumesPendingWithoutEffect(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGUSR1-1)
	pcb.Sig.Handlers[defs.SIGUSR1-1] = defs.SIG_IGN

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
	pcb.Sig.Lock()
	pending := pcb.Sig.Pending
	pcb.Sig.Unlock()
	assert.Zero(t, pending&(1<<uint(defs.SIGUSR1-1)), "consumed even though ignored")
}

func TestDeliverDefaultTerminateCallsExit(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGTERM-1)

	terminated := Deliver(s, table, pcb, tcb, nil)
	require.True(t, terminated)
	assert.Equal(t, proc.PZombie, pcb.PState)
	assert.Equal(t, 128+defs.SIGTERM, pcb.ExitCode)
}

func TestDeliverDefaultIgnoreLeavesProcessAlone(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1 << uint(defs.SIGCHLD-1)

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
	assert.Equal(t, proc.PRunning, pcb.PState)
}

func TestDeliverDefaultContinueClearsStopped(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.PState = proc.PStopped
	pcb.Sig.Pending |= 1 << uint(defs.SIGCONT-1)

	terminated := Deliver(s, table, pcb, tcb, nil)
	assert.False(t, terminated)
	assert.Equal(t, proc.PRunning, pcb.PState)
}

func TestDeliverLowestNumberedSignalWinsWhenSeveralPending(t *testing.T) {
	s, table, pcb, tcb := mkDeliverable(t)
	pcb.Sig.Pending |= 1<<uint(defs.SIGCHLD-1) | 1<<uint(defs.SIGTERM-1)
	// SIGCHLD(17) > SIGTERM(15): SIGTERM is lower-numbered, delivered first.
	terminated := Deliver(s, table, pcb, tcb, nil)
	require.True(t, terminated, "SIGTERM (default terminate) was the lowest pending")

	pcb.Sig.Lock()
	stillPending := pcb.Sig.Pending
	pcb.Sig.Unlock()
	assert.NotZero(t, stillPending&(1<<uint(defs.SIGCHLD-1)), "SIGCHLD is untouched this round")
}
