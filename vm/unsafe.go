package vm

import (
	"unsafe"

	"coalos/mem"
)

func ptrAtVM(va mem.Va_t) unsafe.Pointer {
	return unsafe.Pointer(uintptr(va))
}

// copyPage copies one full page from the temp-mapped address src to dst.
func copyPage(dst, src mem.Va_t) {
	s := (*[mem.PGSIZE]byte)(ptrAtVM(src))
	d := (*[mem.PGSIZE]byte)(ptrAtVM(dst))
	*d = *s
}
