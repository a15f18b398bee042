// Package capset holds the capability interfaces the kernel's core uses to
// reach its out-of-scope collaborators — filesystem, console, ELF loader
// (spec §1 "treated as external collaborators via their interfaces only",
// §6). This replaces the teacher's global `g_*` function-pointer tables
// (Design Note 2: "vtable-in-struct -> Go interfaces with one shared
// operations record") with ordinary Go interfaces, installed exactly once
// at boot through a OnceInit cell (Design Note 1).
package capset

import (
	"coalos/defs"
	"coalos/stat"
	"coalos/ustr"
)

// VFS is the filesystem operation table the syscall layer calls for
// path-based operations (spec §6).
type VFS interface {
	Open(path ustr.Ustr, flags int, mode int) (Vnode, defs.Err_t)
	Stat(path ustr.Ustr) (stat.Stat_t, defs.Err_t)
	Mkdir(path ustr.Ustr, mode int) defs.Err_t
	Rmdir(path ustr.Ustr) defs.Err_t
	Unlink(path ustr.Ustr) defs.Err_t
}

// Vnode is one open file reference returned by VFS.Open.
type Vnode interface {
	Read(buf []uint8, off int) (int, defs.Err_t)
	Write(buf []uint8, off int) (int, defs.Err_t)
	Stat() (stat.Stat_t, defs.Err_t)
	Close() defs.Err_t
}

// TTY is the byte-oriented console the read_line syscall drains and the
// write syscall feeds (spec §1 "supplying a byte-oriented tty").
type TTY interface {
	ReadLine(buf []uint8) (int, defs.Err_t)
	WriteBytes(buf []uint8) (int, defs.Err_t)
}

// Segment is one loadable region of a parsed executable image.
type Segment struct {
	VA    uintptr
	Bytes []uint8
	Write bool
	Exec  bool
}

// Loader converts a binary image into loadable segments plus an entry
// point (spec §1 "producing the binary image... converts to initial page
// mappings plus an entry point").
type Loader interface {
	Load(image []uint8) (entry uintptr, segs []Segment, err defs.Err_t)
}

// Once is a write-once cell: Set panics if called twice, Get panics if
// called before Set. Every capability above is installed through exactly
// one Once cell during boot.Sequence and is then immutable and lock-free to
// read (Design Note 1, "global singletons -> OnceInit cells").
type Once[T any] struct {
	val T
	set bool
}

func (o *Once[T]) Set(v T) {
	if o.set {
		panic("capset: already set")
	}
	o.val = v
	o.set = true
}

func (o *Once[T]) Get() T {
	if !o.set {
		panic("capset: read before set")
	}
	return o.val
}

func (o *Once[T]) IsSet() bool { return o.set }

// The three standing capability cells the kernel's core depends on.
var (
	VFSCap    Once[VFS]
	TTYCap    Once[TTY]
	LoaderCap Once[Loader]
)
