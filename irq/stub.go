package irq

import "unsafe"

// dispatchFromAsm is the landing pad commonTail calls with a pointer to
// the frame it just built on the interrupted task's stack. It exists
// (rather than having the asm call Dispatch directly) so the unsafe
// pointer conversion happens in exactly one place.
func dispatchFromAsm(sp uintptr) {
	f := (*Frame)(unsafe.Pointer(sp))
	Dispatch(f)
}
