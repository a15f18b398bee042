// Package cpu holds the raw, privileged x86 primitives Coal OS needs: port
// I/O, control-register access, GDT/IDT/TSS loading, the context-switch
// trampoline, and an IRQ-save spinlock. Every function here that issues a
// privileged instruction is declared in Go and implemented in a
// corresponding Plan 9 assembly file, the split the retrieved gopheros
// vmm.go shows with its own `cpu.ReadCR2` — the teacher repo has no
// equivalent package because it hosts Coal-like processes as goroutines on
// a modified Go runtime instead of writing ring transitions itself.
package cpu

// Inb reads one byte from the given I/O port.
//
//go:noescape
func Inb(port uint16) uint8

// Outb writes one byte to the given I/O port.
//
//go:noescape
func Outb(port uint16, v uint8)

// Inw/Outw are the 16-bit port I/O primitives the PIC and PS/2 controller
// sometimes need.
//
//go:noescape
func Inw(port uint16) uint16

//go:noescape
func Outw(port uint16, v uint16)

// IOWait performs a throwaway write to an unused port (0x80), giving the
// preceding in/out instruction time to take effect on real hardware — the
// traditional "outb to port 0x80" delay used by every x86 PIC-remap
// sequence.
//
//go:noescape
func IOWait()
