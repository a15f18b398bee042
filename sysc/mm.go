package sysc

import (
	"coalos/defs"
	"coalos/irq"
	"coalos/mem"
	"coalos/proc"
	"coalos/vm"
)

// sysBrk implements spec §6 SYS_BRK. Unlike every other syscall, brk
// never returns -errno (spec §6 table: "Returns: new brk", no "/-errno"
// suffix) — a failed grow just reports the unchanged break, matching the
// classic brk(2) convention.
func sysBrk(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	addr := mem.Va_t(a.A0)
	if addr == 0 {
		pcb.AS.Lock_pmap()
		cur := pcb.AS.EndBrk
		pcb.AS.Unlock_pmap()
		return int32(cur)
	}
	if err := pcb.AS.Grow(addr); err != 0 {
		pcb.AS.Lock_pmap()
		cur := pcb.AS.EndBrk
		pcb.AS.Unlock_pmap()
		return int32(cur)
	}
	return int32(addr)
}

// sysMmap implements the anonymous-mapping subset of mmap(2) (spec §6
// SYS_MMAP, Non-goal §1 "no file-backed demand paging"): MAP_ANONYMOUS
// only, fd/off are ignored.
func sysMmap(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	addr := mem.Va_t(a.A0)
	length := int(a.A1)
	prot := int(a.A2)
	flags := int(a.A3)

	if flags&defs.MAP_ANONYMOUS == 0 {
		return int32(-defs.EINVAL)
	}
	if length <= 0 {
		return int32(-defs.EINVAL)
	}

	perm := vm.Perm(0)
	if prot&defs.PROT_READ != 0 {
		perm |= vm.PermR
	}
	if prot&defs.PROT_WRITE != 0 {
		perm |= vm.PermW
	}
	if prot&defs.PROT_EXEC != 0 {
		perm |= vm.PermX
	}

	hint := addr
	if hint == 0 {
		hint = pcb.AS.StartBrk
	}
	start, err := pcb.AS.Mmap(hint, length, perm, flags&defs.MAP_FIXED != 0)
	if err != 0 {
		return int32(err)
	}
	return int32(start)
}
