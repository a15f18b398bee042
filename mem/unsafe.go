package mem

import "unsafe"

// ptrAt converts a virtual address into an unsafe.Pointer. Confined to this
// one-line helper so every unsafe cast in the package goes through the same
// place.
func ptrAt(va Va_t) unsafe.Pointer {
	return unsafe.Pointer(uintptr(va))
}
