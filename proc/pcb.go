package proc

import (
	"sync"

	"coalos/accnt"
	"coalos/defs"
	"coalos/fd"
	"coalos/vm"
)

// SigTable is the per-process signal state (spec §3 "Signal state").
type SigTable struct {
	sync.Mutex
	Handlers       [defs.NSIG]uintptr // SIG_DFL/SIG_IGN/user address
	Pending        uint32
	Mask           uint32
	InSignalHandler int
	AltStack       uintptr

	// SavedCtxVA/SavedMask record where the pre-signal register context
	// was pushed on the user stack and what the mask was before delivery
	// raised it — consulted by sigreturn (spec §4.10 "sigreturn pops the
	// saved context and clears in_signal_handler"). Non-nesting signals
	// (InSignalHandler guards re-entry) mean one slot is always enough.
	SavedCtxVA uintptr
	SavedMask  uint32
}

// PState is the PCB-level process lifecycle state (spec §3 "state ∈
// {running, ready, sleeping, zombie, exiting}" — the subset not already
// owned by the TCB).
type PState int

const (
	PRunning PState = iota
	PExiting
	PZombie
	PStopped
)

// PCB is the process control block (spec §3): everything about a process
// that isn't the scheduler's direct concern.
type PCB struct {
	sync.Mutex

	PID      defs.Pid_t
	ParentID defs.Pid_t
	Children []defs.Pid_t

	PState   PState
	ExitCode int

	AS *vm.AS
	Fds *fd.Table_t
	Cwd *fd.Cwd_t

	Sig SigTable
	Acct accnt.Accnt_t

	PGID defs.Pid_t
	SID  defs.Pid_t

	KStackTop uintptr
	UserESP   uintptr
	Entry     uintptr
	EFlags    uintptr // eflags a first dispatch enters user mode with

	WaitCh chan struct{}
}

// NewPCB allocates a fresh PCB for pid with parent as its parent.
func NewPCB(pid, parent defs.Pid_t, as *vm.AS) *PCB {
	return &PCB{
		PID:      pid,
		ParentID: parent,
		AS:       as,
		Fds:      &fd.Table_t{},
		PGID:     pid,
		SID:      parent,
		EFlags:   0x202,
		WaitCh:   make(chan struct{}, 1),
	}
}

// AddChild records child as one of p's children (spec §3 PCB "children
// list").
func (p *PCB) AddChild(child defs.Pid_t) {
	p.Lock()
	defer p.Unlock()
	p.Children = append(p.Children, child)
}

// RemoveChild deletes child from p's children list (called once the child
// has been waited for and reaped).
func (p *PCB) RemoveChild(child defs.Pid_t) {
	p.Lock()
	defer p.Unlock()
	for i, c := range p.Children {
		if c == child {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}
