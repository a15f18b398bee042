package sysc

import (
	"coalos/defs"
	"coalos/irq"
	"coalos/mem"
	"coalos/proc"
	"coalos/sched"
	"coalos/signal"
)

// MaxPathLen/MaxArgv/MaxArgLen bound the user-controlled string/array
// copies every path- or exec-taking syscall performs (spec §4.8 Execve
// "parse/validate path and argv (lengths bounded)").
const (
	MaxPathLen = 256
	MaxArgv    = 64
	MaxArgLen  = 256
)

func sysExit(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	code := int(int32(a.A0))
	table := proc.Global()
	pcb.Lock()
	parentID := pcb.ParentID
	pcb.Unlock()
	proc.Exit(table, pcb, tcb, code)
	if parent, parentTCB, ok := table.Get(parentID); ok {
		_ = parent
		sched.Get().Wake(parentTCB)
	}
	return 0
}

// sysFork builds the child via proc.Fork, then seeds its PCB with the
// parent's trapped EIP/ESP/EFLAGS and marks it a fork-child (spec §4.8
// Fork "duplicate register frame such that child's syscall return is 0
// and parent's is child PID") so its first dispatch resumes inside this
// very syscall, not at program start.
func sysFork(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	table := proc.Global()
	child, childTCB, err := proc.Fork(table, pcb, tcb)
	if err != 0 {
		return int32(err)
	}
	child.Entry = uintptr(f.EIP)
	child.UserESP = uintptr(f.ESP)
	child.EFlags = uintptr(f.EFlags) | 0x200
	childTCB.ForkChild = true

	s := sched.Get()
	s.Track(childTCB)
	s.Enqueue(childTCB)
	return int32(child.PID)
}

// sysExecve loads upath's contents through the VFS collaborator and
// replaces the caller's address space (spec §4.8 Execve). Since execve
// never returns through the normal EAX-return path, a successful call
// rewrites the live trap frame directly instead of returning a value the
// caller would resume at the old EIP to see.
func sysExecve(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	if verr := validatePtrArray(pcb, mem.Va_t(a.A1)); verr != 0 {
		return int32(verr)
	}
	if a.A2 != 0 {
		if verr := validatePtrArray(pcb, mem.Va_t(a.A2)); verr != 0 {
			return int32(verr)
		}
	}

	canon := resolvePath(pcb, path)
	image, rerr := readWholeFile(canon)
	if rerr != 0 {
		return int32(rerr)
	}

	if eerr := proc.Execve(pcb, tcb, image); eerr != 0 {
		return int32(eerr)
	}

	f.EIP = uint32(pcb.Entry)
	f.ESP = uint32(pcb.UserESP)
	f.EFlags = uint32(pcb.EFlags)
	f.Regs = irq.Regs{}
	return 0
}

// validatePtrArray walks a NUL-terminated array of user string pointers
// (argv or envp), bounding both the array length and each string's
// length, without retaining the contents — Coal OS's ELF loader
// collaborator takes only image bytes (no argv-building convention), so
// this exists purely to surface EFAULT/ENAMETOOLONG on malformed input (spec
// §4.8 "lengths bounded").
func validatePtrArray(pcb *proc.PCB, uva mem.Va_t) defs.Err_t {
	if uva == 0 {
		return 0
	}
	for i := 0; i < MaxArgv; i++ {
		ptr, err := pcb.AS.Userreadn(uva+mem.Va_t(i*4), 4)
		if err != 0 {
			return err
		}
		if ptr == 0 {
			return 0
		}
		if _, serr := pcb.AS.Userstr(mem.Va_t(ptr), MaxArgLen); serr != 0 {
			return serr
		}
	}
	return -defs.ENAMETOOLONG
}

// sysWaitpid implements spec §4.8 waitpid: looks up a zombie child (by
// PID or -1), writes its exit status to user space, detaches and
// destroys it. A caller with no matching zombie yet blocks until
// sys_exit (via sched.Wake) retries it.
func sysWaitpid(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pid := defs.Pid_t(int32(a.A0))
	table := proc.Global()
	for {
		cid, code, err := proc.Waitpid(table, pcb, pid)
		if err == 0 {
			if a.A1 != 0 {
				pcb.AS.Userwriten(mem.Va_t(a.A1), 4, code)
			}
			return int32(cid)
		}
		if err != -defs.EAGAIN {
			return int32(err)
		}
		sched.Get().Block(tcb)
	}
}

func sysGetpid(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	return int32(pcb.PID)
}

func sysGetppid(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pcb.Lock()
	defer pcb.Unlock()
	return int32(pcb.ParentID)
}

// sysKill sends sig to pid (spec §6 SYS_KILL), following POSIX kill(2)'s
// target selection: pid > 0 one process, pid == 0 the caller's process
// group, pid == -1 every process but init/idle, pid < -1 the group
// -pid.
func sysKill(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pid := defs.Pid_t(int32(a.A0))
	sig := int(a.A1)
	table := proc.Global()
	s := sched.Get()

	if pid > 0 {
		target, ttcb, ok := table.Get(pid)
		if !ok {
			return int32(-defs.ESRCH)
		}
		return int32(signal.Send(s, target, ttcb, sig))
	}

	var pgid defs.Pid_t
	broadcastAll := false
	switch {
	case pid == 0:
		pcb.Lock()
		pgid = pcb.PGID
		pcb.Unlock()
	case pid == -1:
		broadcastAll = true
	default:
		pgid = -pid
	}

	matched := false
	table.Each(func(tpcb *proc.PCB, ttcb *proc.TCB) {
		if tpcb.PID == defs.PidIdle {
			return
		}
		if broadcastAll && tpcb.PID == defs.PidInit {
			return
		}
		tpcb.Lock()
		samePGID := tpcb.PGID == pgid
		tpcb.Unlock()
		if !broadcastAll && !samePGID {
			return
		}
		matched = true
		signal.Send(s, tpcb, ttcb, sig)
	})
	if !matched {
		return int32(-defs.ESRCH)
	}
	return 0
}

// sysSignal installs a handler for signum and returns the previous one
// (spec §6 SYS_SIGNAL). SIGKILL/SIGSTOP can never be overridden.
func sysSignal(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	sig := int(a.A0)
	handler := a.A1
	if sig <= 0 || sig >= defs.NSIG {
		return int32(defs.SIG_ERR)
	}
	if defs.UncatchableMask&(1<<uint(sig-1)) != 0 {
		return int32(defs.SIG_ERR)
	}
	pcb.Sig.Lock()
	old := pcb.Sig.Handlers[sig-1]
	pcb.Sig.Handlers[sig-1] = handler
	pcb.Sig.Unlock()
	return int32(old)
}

func sysSetpgid(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pid := defs.Pid_t(int32(a.A0))
	pgid := defs.Pid_t(int32(a.A1))
	target := pcb
	if pid != 0 {
		t, _, ok := proc.Global().Get(pid)
		if !ok {
			return int32(-defs.ESRCH)
		}
		target = t
	}
	target.Lock()
	if pgid == 0 {
		target.PGID = target.PID
	} else {
		target.PGID = pgid
	}
	target.Unlock()
	return 0
}

func sysSetsid(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pcb.Lock()
	defer pcb.Unlock()
	pcb.SID = pcb.PID
	pcb.PGID = pcb.PID
	return int32(pcb.PID)
}
