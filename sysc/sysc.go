// Package sysc is the syscall dispatcher and handler table (spec §4.9): on
// every int 0x80 trap, EAX names the call and EBX/ECX/EDX/ESI/EDI carry up
// to five arguments; a fixed table indexed by syscall number yields the
// handler, unknown numbers return -ENOSYS, and the handler's result is
// written back into the saved EAX before IRET restores the user context.
// The teacher has no equivalent — Biscuit's process control rides its
// modified Go runtime's own syscall trapping — so this dispatcher is built
// fresh from spec §4.9/§6, reusing the capset/fd/fdops/vm machinery
// already adapted from the teacher's fs/vm packages.
package sysc

import (
	"coalos/defs"
	"coalos/irq"
	"coalos/proc"
	"coalos/sched"
	"coalos/signal"
)

// VectorSyscall is the IDT vector int 0x80 traps to (spec §6 "System calls
// (int 0x80...)").
const VectorSyscall = 0x80

// Args holds a syscall's up-to-five register arguments, unconverted (spec
// §4.9 "EBX/ECX/EDX/ESI/EDI hold up to five arguments").
type Args struct {
	A0, A1, A2, A3, A4 uintptr
}

// Handler is one syscall's implementation. f is the live trap frame —
// needed by fork (to seed the child's resume point) and execve (to
// rewrite the calling task's own resume point); most handlers ignore it.
// The returned int32 is written back into the trap frame's EAX verbatim:
// non-negative on success, -errno on failure (spec §4.9).
type Handler func(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32

var table map[defs.Syscall]Handler

func init() {
	table = map[defs.Syscall]Handler{
		defs.SYS_EXIT:     sysExit,
		defs.SYS_FORK:     sysFork,
		defs.SYS_READ:     sysRead,
		defs.SYS_WRITE:    sysWrite,
		defs.SYS_OPEN:     sysOpen,
		defs.SYS_CLOSE:    sysClose,
		defs.SYS_WAITPID:  sysWaitpid,
		defs.SYS_UNLINK:   sysUnlink,
		defs.SYS_EXECVE:   sysExecve,
		defs.SYS_CHDIR:    sysChdir,
		defs.SYS_LSEEK:    sysLseek,
		defs.SYS_GETPID:   sysGetpid,
		defs.SYS_KILL:     sysKill,
		defs.SYS_MKDIR:    sysMkdir,
		defs.SYS_RMDIR:    sysRmdir,
		defs.SYS_PIPE:     sysPipe,
		defs.SYS_BRK:      sysBrk,
		defs.SYS_SIGNAL:   sysSignal,
		defs.SYS_SETPGID:  sysSetpgid,
		defs.SYS_DUP2:     sysDup2,
		defs.SYS_GETPPID:  sysGetppid,
		defs.SYS_SETSID:   sysSetsid,
		defs.SYS_MMAP:     sysMmap,
		defs.SYS_STAT:     sysStat,
		defs.SYS_GETDENTS: sysGetdents,
		defs.SYS_GETCWD:   sysGetcwd,
	}
}

// Install registers Entry as the int 0x80 handler. Called once by boot
// sequencing, after the scheduler and every capset cell are installed.
func Install() {
	irq.Register(VectorSyscall, Entry)
}

// Entry is the vector-0x80 ISR handler (spec §4.9 Syscall dispatcher).
// sigreturn is special-cased: SigReturn replaces the entire trap frame
// (including EAX) from the saved signal context, so Entry must not
// overwrite it with a handler return value afterward.
func Entry(f *irq.Frame) {
	s := sched.Get()
	tcb := s.Current()
	pcb := tcb.PCB

	nr := defs.Syscall(f.EAX)
	if nr == defs.SYS_SIGRETURN {
		signal.SigReturn(pcb, f)
	} else {
		h, ok := table[nr]
		var ret int32
		if !ok {
			ret = int32(-defs.ENOSYS)
		} else {
			a := Args{uintptr(f.EBX), uintptr(f.ECX), uintptr(f.EDX), uintptr(f.ESI), uintptr(f.EDI)}
			ret = h(pcb, tcb, f, a)
		}
		f.EAX = uint32(ret)
	}

	pcb.Lock()
	exited := pcb.PState == proc.PZombie
	pcb.Unlock()
	if exited {
		s.Yield()
		return
	}

	if signal.Deliver(s, proc.Global(), pcb, tcb, f) {
		s.Yield()
		return
	}
	if s.NeedsResched() {
		s.Yield()
	}
}
