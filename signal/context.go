package signal

import (
	"unsafe"

	"coalos/irq"
)

// savedContext is the register state a delivered signal pushes onto the
// user stack so sigreturn can restore it exactly (spec §4.10 "push a
// signal context onto the user stack... sigreturn pops the saved
// context"). Laid out as a plain value type and reinterpreted as bytes —
// the same raw-struct-over-memory idiom the ISR stubs use for irq.Frame.
type savedContext struct {
	Regs   irq.Regs
	EIP    uint32
	EFlags uint32
	ESP    uint32
}

const savedContextSize = unsafe.Sizeof(savedContext{})

func (c *savedContext) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(c)), savedContextSize)
}

func bytesToContext(b []byte) savedContext {
	var c savedContext
	copy((*[savedContextSize]byte)(unsafe.Pointer(&c))[:], b)
	return c
}
