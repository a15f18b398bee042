// Package fdops defines the per-descriptor operation interface backing the
// fixed-size fd table (spec §3 "File descriptor table"). It is the thin
// adapter layer between a generic Fd_t slot (package fd) and whatever
// concrete thing the descriptor refers to: a capset.Vnode, a capset.TTY, or
// a pipe endpoint (package circbuf).
package fdops

import "coalos/defs"

// Fdops_i is the operation set every open file descriptor implements,
// regardless of what backs it (grounded on the teacher's fd.Fd_t "fops is
// an interface implemented via a pointer receiver" comment).
type Fdops_i interface {
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	Close() defs.Err_t
	Reopen() defs.Err_t
	Lseek(off int, whence int) (int, defs.Err_t)
}

// Userio_i abstracts a source/destination for a descriptor's Read/Write —
// either a real user-space cursor (vm.Userbuf) or an in-kernel one
// (vm.Fakeubuf) — so fdops never imports package vm directly (vm, in turn,
// needs no knowledge of fdops; avoids an import cycle since vm is lower in
// the dependency order, spec §5).
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}
