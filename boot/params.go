package boot

import "coalos/capset"

// KernelHeapSize bounds the buddy allocator's virtual range (spec §2
// "orders 12-22"): 4MiB, one PDE; Sequence places it just below the temp
// arena so none of the fixed windows (temp arena, recursive self-map)
// ever collide with it.
const (
	KernelHeapSize = 4 * 1024 * 1024
)

// Params carries the collaborators Sequence has no business constructing
// itself (spec §1 "external collaborators via their interfaces only"):
// the concrete filesystem, console and ELF loader. The init binary's bytes
// are not among them; Sequence takes those from the first Multiboot2
// module. A real boot wires these to the actual driver/VFS/loader
// implementations; tests wire in fakes instead (package testkit).
type Params struct {
	VFS    capset.VFS
	TTY    capset.TTY
	Loader capset.Loader
}

// BootParams is the integration seam for whatever final binary links this
// kernel: the driver/VFS/loader bring-up that produces concrete VFS/TTY/
// Loader values is entirely out of this module's scope (spec §1), so
// whatever build assembles the bootable image sets this package var's
// fields — via ordinary Go package-level initialization, which the linked
// runtime still performs before jumping to entry — ahead of time.
var BootParams Params

// InstallParams sets every capset cell Params carries. Split out of
// Sequence so tests can install fakes without going through the full
// Multiboot2 bring-up.
func InstallParams(p Params) {
	capset.VFSCap.Set(p.VFS)
	capset.TTYCap.Set(p.TTY)
	capset.LoaderCap.Set(p.Loader)
}
