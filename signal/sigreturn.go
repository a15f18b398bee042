package signal

import (
	"coalos/defs"
	"coalos/irq"
	"coalos/mem"
	"coalos/proc"
)

// SigReturn implements the sigreturn syscall (spec §4.10: "sigreturn pops
// the saved context and clears in_signal_handler"): restores the
// registers/EIP/ESP a prior Deliver saved, restores the pre-signal mask,
// and clears the non-nesting guard.
func SigReturn(pcb *proc.PCB, f *irq.Frame) defs.Err_t {
	pcb.Sig.Lock()
	ctxVA := pcb.Sig.SavedCtxVA
	oldMask := pcb.Sig.SavedMask
	pcb.Sig.Unlock()

	if ctxVA == 0 {
		return -defs.EINVAL
	}

	buf := make([]byte, savedContextSize)
	if err := pcb.AS.ReadBytes(mem.Va_t(ctxVA), buf); err != 0 {
		return err
	}
	ctx := bytesToContext(buf)

	f.Regs = ctx.Regs
	f.EIP = ctx.EIP
	f.EFlags = ctx.EFlags
	f.ESP = ctx.ESP

	pcb.Sig.Lock()
	pcb.Sig.Mask = oldMask
	pcb.Sig.InSignalHandler = 0
	pcb.Sig.SavedCtxVA = 0
	pcb.Sig.Unlock()

	return 0
}
