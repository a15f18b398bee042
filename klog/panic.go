package klog

import (
	"coalos/caller"
	"coalos/cpu"
	"coalos/irq"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

// Install registers Panic as irq.Dispatch's fallback for every vector with
// no registered handler (spec §4.9 default_isr_handler, §7 "klog is the
// sole panic/recover boundary").
func Install() {
	irq.SetUnhandledHook(Panic)
}

// maxDisasmBytes bounds the read at the faulting EIP; no x86 instruction
// Coal OS emits is longer than this.
const maxDisasmBytes = 16

// faultBytes copies the bytes at va directly out of the running address
// space: a trap frame's EIP is always mapped in the CR3 that was live when
// the trap fired, so no page-table walk is needed to read it back.
func faultBytes(va uint32) []byte {
	if va == 0 {
		return nil
	}
	p := unsafe.Pointer(uintptr(va))
	return unsafe.Slice((*byte)(p), maxDisasmBytes)
}

// disasmOne decodes and renders the single instruction at f.EIP, for
// inclusion in the panic banner (spec §4's "[EXPANSION — supplemented
// feature] panic-time disassembly").
func disasmOne(f *irq.Frame) (s string) {
	defer func() {
		if recover() != nil {
			s = "<fault reading eip>"
		}
	}()
	b := faultBytes(f.EIP)
	if b == nil {
		return "<no eip>"
	}
	inst, err := x86asm.Decode(b, 32)
	if err != nil {
		return "<undecodable: " + err.Error() + ">"
	}
	return x86asm.GNUSyntax(inst, uint64(f.EIP), nil)
}

// Panic renders the full banner spec §7 names — vector, error code, the
// register frame, the faulting instruction, and a call-stack dump — then
// halts the CPU. There is no recovery from an unhandled trap; this is the
// one place Coal OS deliberately never returns.
func Panic(f *irq.Frame) {
	Errorf("PANIC: unhandled trap vector=%d errcode=#%x", f.Vector, f.ErrCode)
	Errorf("  eip=%#08x cs=%#04x eflags=%#08x", f.EIP, f.CS, f.EFlags)
	if f.FromUser() {
		Errorf("  esp=%#08x ss=%#04x (from ring 3)", f.ESP, f.SS)
	}
	Errorf("  eax=%#08x ebx=%#08x ecx=%#08x edx=%#08x", f.EAX, f.EBX, f.ECX, f.EDX)
	Errorf("  esi=%#08x edi=%#08x ebp=%#08x", f.ESI, f.EDI, f.EBP)
	Errorf("  faulting instruction: %s", disasmOne(f))
	caller.Callerdump(2)
	for {
		cpu.Hlt()
	}
}
