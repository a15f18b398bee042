package proc

import (
	"coalos/capset"
	"coalos/cpu"
	"coalos/defs"
	"coalos/mem"
	"coalos/vm"
)

// Subsystem singletons wired once during boot sequencing; lifecycle
// operations reach the page-table engine, frame allocator, temp-mapping
// arena and kernel-stack heap through these rather than threading them
// through every call (mirrors capset's Once-cell shape, but these are
// plain vars since boot owns the only writer and every reader runs after
// it).
var (
	Engine  *mem.Engine
	Frames  mem.FrameOwner
	Arena   *mem.Arena
	KStacks *mem.Allocator
)

// KStackSize is the fixed kernel stack size for every task (two pages;
// spec §4.8 Create "allocate PCB+TCB+kernel stack").
const KStackSize = 2 * mem.PGSIZE

// UserStackSize is the size of the single initial user stack page range
// mapped at process creation (spec §4.8 Create "allocate and map one
// initial user stack page").
const UserStackSize = mem.PGSIZE

func allocKStack() (uintptr, defs.Err_t) {
	if KStacks == nil {
		panic("proc: kernel stack allocator not wired")
	}
	va, ok := KStacks.Kmalloc(KStackSize)
	if !ok {
		return 0, -defs.ENOMEM
	}
	return uintptr(va), 0
}

func freeKStack(stack uintptr) {
	KStacks.Kfree(mem.Va_t(stack))
}

// NewIdle builds the idle task (PID 0, spec §4.7 "kept outside all
// queues"): a TCB with its own kernel stack and no address space — the
// idle loop never touches user memory, only cpu.Hlt and the all-tasks
// zombie scan, so it needs no PD/VMA set at all.
func NewIdle(table *Table) (*PCB, *TCB, defs.Err_t) {
	kstack, kerr := allocKStack()
	if kerr != 0 {
		return nil, nil, kerr
	}
	pcb := NewPCB(defs.PidIdle, defs.PidIdle, nil)
	pcb.KStackTop = kstack + KStackSize
	tcb := NewTCB(defs.PidIdle, pcb, PrioIdle)
	table.Insert(pcb, tcb)
	return pcb, tcb, 0
}

// Create builds a brand-new process from a loadable image (spec §4.8
// Create): new mm, ELF segments mapped via the loader collaborator, one
// initial user stack page, PCB/TCB, kernel stack, inserted into table but
// not yet enqueued — the caller (sched) enqueues it.
func Create(table *Table, parent defs.Pid_t, image []uint8) (*PCB, *TCB, defs.Err_t) {
	loader := capset.LoaderCap.Get()
	entry, segs, err := loader.Load(image)
	if err != 0 {
		return nil, nil, err
	}

	as, aerr := vm.NewAS(Engine, Frames, Arena)
	if aerr != nil {
		return nil, nil, -defs.ENOMEM
	}

	for _, seg := range segs {
		perm := vm.PermR
		if seg.Write {
			perm |= vm.PermW
		}
		if seg.Exec {
			perm |= vm.PermX
		}
		start := mem.Va_t(seg.VA)
		if merr := as.MapAnon(start, len(seg.Bytes), perm); merr != 0 {
			as.FreeAll()
			return nil, nil, merr
		}
		if werr := as.WriteBytes(start, seg.Bytes); werr != 0 {
			as.FreeAll()
			return nil, nil, werr
		}
		if end := start + mem.Va_t(len(seg.Bytes)); end > as.StartBrk {
			as.StartBrk = end
		}
	}
	as.StartBrk = mem.PageRoundup(as.StartBrk)
	as.EndBrk = as.StartBrk

	ustackBottom := mem.UserTop - UserStackSize
	if merr := as.MapAnon(ustackBottom, UserStackSize, vm.PermR|vm.PermW); merr != 0 {
		as.FreeAll()
		return nil, nil, merr
	}

	kstack, kerr := allocKStack()
	if kerr != 0 {
		as.FreeAll()
		return nil, nil, kerr
	}

	pid := table.AllocPID()
	pcb := NewPCB(pid, parent, as)
	pcb.KStackTop = kstack + KStackSize
	pcb.UserESP = uintptr(mem.UserTop)
	pcb.Entry = uintptr(entry)

	tcb := NewTCB(pid, pcb, PrioNormal)
	table.Insert(pcb, tcb)
	return pcb, tcb, 0
}

// Fork duplicates parentPCB into a new process, per spec §4.8 Fork: cloned
// mm, copied fd table, copied signal handlers with pending cleared. The
// child's entry point/stack are seeded from the parent's current values as
// a placeholder; sys_fork (package sysc) overwrites PCB.Entry/UserESP/
// EFlags with the parent's trapped EIP/ESP/EFLAGS and sets TCB.ForkChild
// before the child is ever enqueued, so its first dispatch resumes inside
// the fork syscall rather than at program start (spec §8 testable property
// 8 "child's EAX == 0").
func Fork(table *Table, parentPCB *PCB, parentTCB *TCB) (*PCB, *TCB, defs.Err_t) {
	childAS, err := parentPCB.AS.Fork()
	if err != 0 {
		return nil, nil, err
	}

	kstack, kerr := allocKStack()
	if kerr != 0 {
		childAS.FreeAll()
		return nil, nil, kerr
	}

	pid := table.AllocPID()
	child := NewPCB(pid, parentPCB.PID, childAS)
	child.KStackTop = kstack + KStackSize
	child.UserESP = parentPCB.UserESP
	child.Entry = parentPCB.Entry
	child.PGID = parentPCB.PGID
	child.SID = parentPCB.SID

	if ferr := parentPCB.Fds.CopyInto(child.Fds); ferr != 0 {
		childAS.FreeAll()
		freeKStack(kstack)
		return nil, nil, ferr
	}

	parentPCB.Sig.Lock()
	child.Sig.Handlers = parentPCB.Sig.Handlers
	child.Sig.Mask = parentPCB.Sig.Mask
	parentPCB.Sig.Unlock()
	// child.Sig.Pending starts zero (spec §4.8: "pending cleared in child")

	parentPCB.AddChild(pid)

	childTCB := NewTCB(pid, child, parentTCB.BasePriority)
	table.Insert(child, childTCB)
	return child, childTCB, 0
}

// Execve replaces pcb's address space with a fresh one built from image,
// per spec §4.8 Execve: new mm built first, old one freed only after the
// switch completes ("free old mm after the switch so old code isn't
// unmapped while executing").
func Execve(pcb *PCB, tcb *TCB, image []uint8) defs.Err_t {
	loader := capset.LoaderCap.Get()
	entry, segs, lerr := loader.Load(image)
	if lerr != 0 {
		return lerr
	}

	newAS, aerr := vm.NewAS(Engine, Frames, Arena)
	if aerr != nil {
		return -defs.ENOMEM
	}
	for _, seg := range segs {
		perm := vm.PermR
		if seg.Write {
			perm |= vm.PermW
		}
		if seg.Exec {
			perm |= vm.PermX
		}
		start := mem.Va_t(seg.VA)
		if merr := newAS.MapAnon(start, len(seg.Bytes), perm); merr != 0 {
			newAS.FreeAll()
			return merr
		}
		if werr := newAS.WriteBytes(start, seg.Bytes); werr != 0 {
			newAS.FreeAll()
			return werr
		}
		if end := start + mem.Va_t(len(seg.Bytes)); end > newAS.StartBrk {
			newAS.StartBrk = end
		}
	}
	newAS.StartBrk = mem.PageRoundup(newAS.StartBrk)
	newAS.EndBrk = newAS.StartBrk
	ustackBottom := mem.UserTop - UserStackSize
	if merr := newAS.MapAnon(ustackBottom, UserStackSize, vm.PermR|vm.PermW); merr != 0 {
		newAS.FreeAll()
		return merr
	}

	old := pcb.AS
	pcb.AS = newAS
	pcb.Entry = uintptr(entry)
	pcb.UserESP = uintptr(mem.UserTop)
	pcb.EFlags = 0x202
	tcb.HasRun = false    // next dispatch re-enters via EnterUser, spec §4.8
	tcb.ForkChild = false // a fork-child flag from before this execve no longer applies

	old.FreeAll()
	return 0
}

// Exit transitions pcb/tcb to ZOMBIE, orphaning any children to PID 1 and
// marking a wakeup for the parent (spec §4.8 "exit moves to ZOMBIE, orphans
// reparent to PID 1, SIGCHLD is sent to parent"). The fd table is closed
// here; the kernel stack and mm are not freed here — Reap does that once a
// parent (or the idle task's orphan reaper) has collected the status.
func Exit(table *Table, pcb *PCB, tcb *TCB, code int) {
	pcb.Lock()
	pcb.PState = PZombie
	pcb.ExitCode = code
	children := append([]defs.Pid_t(nil), pcb.Children...)
	parentID := pcb.ParentID
	pcb.Unlock()

	for _, cid := range children {
		if cpcb, _, ok := table.Get(cid); ok {
			cpcb.Lock()
			cpcb.ParentID = defs.PidInit
			cpcb.Unlock()
			if initPCB, _, ok := table.Get(defs.PidInit); ok {
				initPCB.AddChild(cid)
			}
		}
	}

	pcb.Fds.CloseAll()

	tcb.Lock()
	tcb.State = StateZombie
	tcb.ExitCode = code
	tcb.Unlock()

	if parent, _, ok := table.Get(parentID); ok {
		select {
		case parent.WaitCh <- struct{}{}:
		default:
		}
		parent.Sig.Lock()
		parent.Sig.Pending |= 1 << (defs.SIGCHLD - 1)
		parent.Sig.Unlock()
	}
}

// Reap finishes destroying a zombie: frees its mm, kernel stack, and
// detaches it from the process table (spec §4.7 "destroy_process (frees
// MM, fd table, kernel stack, PCB, TCB)" — fd table is already closed by
// Exit). Callers must have already harvested the exit code (waitpid) or
// decided it will never be harvested (orphan with a dead parent chain).
func Reap(table *Table, pcb *PCB, tcb *TCB) {
	pcb.AS.FreeAll()
	freeKStack(pcb.KStackTop - KStackSize)
	table.Remove(pcb.PID)
}

// Waitpid implements spec §4.8 "waitpid looks up a zombie child (by PID or
// -1), copies exit status to user, detaches and destroys it". pid == -1
// matches any child. Returns ECHILD if the caller has no matching children
// at all (replacing the source's unconditional ECHILD stub, Design Note
// "source's sys_waitpid_impl ... known gap").
func Waitpid(table *Table, parentPCB *PCB, pid defs.Pid_t) (defs.Pid_t, int, defs.Err_t) {
	parentPCB.Lock()
	candidates := append([]defs.Pid_t(nil), parentPCB.Children...)
	parentPCB.Unlock()

	if len(candidates) == 0 {
		return 0, 0, -defs.ECHILD
	}

	for _, cid := range candidates {
		if pid != -1 && cid != pid {
			continue
		}
		cpcb, ctcb, ok := table.Get(cid)
		if !ok {
			continue
		}
		cpcb.Lock()
		isZombie := cpcb.PState == PZombie
		code := cpcb.ExitCode
		cpcb.Unlock()
		if !isZombie {
			continue
		}
		parentPCB.RemoveChild(cid)
		Reap(table, cpcb, ctcb)
		return cid, code, 0
	}

	if pid != -1 {
		isChild := false
		for _, cid := range candidates {
			if cid == pid {
				isChild = true
			}
		}
		if _, _, ok := table.Get(pid); !ok || !isChild {
			return 0, 0, -defs.ECHILD
		}
	}
	return 0, 0, -defs.EAGAIN
}

// Dispatch switches from the currently running task (whose context is
// saved into *fromCtx) to tcb. A task that has never run before enters via
// EnterUser's IRET-shaped frame; every later dispatch uses the ordinary
// Switch (spec §4.7 "On first-ever dispatch of a user task, the scheduler
// instead enters user mode via an IRET-shaped stack frame").
func Dispatch(fromCtx *cpu.Context, tcb *TCB) {
	if !tcb.HasRun {
		tcb.HasRun = true
		if tcb.ForkChild {
			cpu.EnterUserFork(tcb.PCB.Entry, tcb.PCB.UserESP, tcb.PCB.EFlags)
		} else {
			cpu.EnterUser(tcb.PCB.Entry, tcb.PCB.UserESP, tcb.PCB.EFlags)
		}
		return
	}
	cpu.Switch(fromCtx, tcb.Ctx)
}
