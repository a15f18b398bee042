package signal

import (
	"encoding/binary"

	"coalos/defs"
	"coalos/irq"
	"coalos/mem"
	"coalos/proc"
	"coalos/sched"
)

// trampoline is the tiny user-executable stub a delivered signal's return
// address points at: load SYS_SIGRETURN into EAX, trap into the kernel.
// "mov eax, imm32; int 0x80" (spec §4.10 "a trampoline return address").
func trampoline() []byte {
	b := make([]byte, 7)
	b[0] = 0xB8
	binary.LittleEndian.PutUint32(b[1:5], uint32(defs.SYS_SIGRETURN))
	b[5] = 0xCD
	b[6] = 0x80
	return b
}

func put32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

// Deliver checks for and, if one is due, delivers exactly one pending
// signal on the kernel→user return path (spec §4.10 Delivery). It reports
// only whether pcb was terminated (the caller must not resume it —
// proc.Exit has already been called). A stop is handled inside Deliver:
// it enters Scheduler.Block and returns only once the task has been
// continued.
func Deliver(s *sched.Scheduler, table *proc.Table, pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame) (terminated bool) {
	pcb.Sig.Lock()
	if pcb.Sig.InSignalHandler != 0 {
		pcb.Sig.Unlock()
		return false
	}
	deliverable := (pcb.Sig.Pending &^ pcb.Sig.Mask) | (pcb.Sig.Pending & defs.UncatchableMask)
	sig := lowestSet(deliverable)
	if sig == 0 {
		pcb.Sig.Unlock()
		return false
	}
	pcb.Sig.Pending &^= 1 << uint(sig-1)
	handler := pcb.Sig.Handlers[sig-1]
	pcb.Sig.Unlock()

	switch handler {
	case defs.SIG_IGN:
		return false
	case defs.SIG_DFL:
		return applyDefault(s, table, pcb, tcb, sig)
	default:
		deliverCustom(pcb, f, sig, handler)
		return false
	}
}

// applyDefault carries out sig's default disposition (spec §4.10: "If the
// handler is DFL, apply the default action").
func applyDefault(s *sched.Scheduler, table *proc.Table, pcb *proc.PCB, tcb *proc.TCB, sig int) (terminated bool) {
	switch DefaultAction(sig) {
	case ActIgn:
		return false
	case ActCont:
		pcb.Lock()
		if pcb.PState == proc.PStopped {
			pcb.PState = proc.PRunning
		}
		pcb.Unlock()
		return false
	case ActStop:
		pcb.Lock()
		pcb.PState = proc.PStopped
		pcb.Unlock()
		s.Block(tcb)
		return false
	case ActTerm, ActCore:
		proc.Exit(table, pcb, tcb, 128+sig)
		return true
	}
	return false
}

// deliverCustom builds the trampoline frame described by spec §4.10:
// "push a signal context onto the user stack, then an argument (signal
// number) and a trampoline return address, and rewrite EIP to the handler
// and ESP to the new user ESP".
func deliverCustom(pcb *proc.PCB, f *irq.Frame, sig int, handler uintptr) {
	ctx := savedContext{Regs: f.Regs, EIP: f.EIP, EFlags: f.EFlags, ESP: f.ESP}
	esp := mem.Va_t(f.ESP)

	ctxBytes := ctx.bytes()
	esp -= mem.Va_t(len(ctxBytes))
	ctxVA := esp
	pcb.AS.WriteBytes(ctxVA, ctxBytes)

	tramp := trampoline()
	esp -= mem.Va_t(len(tramp))
	trampVA := esp
	pcb.AS.WriteBytes(trampVA, tramp)

	esp -= 8
	pcb.AS.WriteBytes(esp, put32(uint32(trampVA)))
	pcb.AS.WriteBytes(esp+4, put32(uint32(sig)))

	pcb.Sig.Lock()
	pcb.Sig.SavedCtxVA = uintptr(ctxVA)
	pcb.Sig.SavedMask = pcb.Sig.Mask
	pcb.Sig.Mask |= 1 << uint(sig-1)
	pcb.Sig.InSignalHandler = 1
	pcb.Sig.Unlock()

	f.EIP = uint32(handler)
	f.ESP = uint32(esp)
}
