// Package testkit provides in-memory stand-ins for the capability
// collaborators spec §1 treats as external (VFS, TTY), so the rest of the
// tree's tests can exercise boot.Sequence-style wiring and every syscall
// that reaches capset without a real disk or console. Grounded on the
// retrieved `ja7ad-consumption` pack's preference for hand-rolled fakes
// over mocking frameworks, carried through this tree's existing `_test.go`
// files.
package testkit

import (
	"sync"

	"coalos/capset"
	"coalos/defs"
	"coalos/stat"
	"coalos/ustr"
)

// FakeVnode is an in-memory file: a byte slice plus a mode, read/written
// at caller-supplied offsets exactly like a real Vnode.
type FakeVnode struct {
	mu     sync.Mutex
	data   []uint8
	mode   uint
	closed bool
}

func NewFakeVnode(mode uint, initial []uint8) *FakeVnode {
	return &FakeVnode{data: append([]uint8(nil), initial...), mode: mode}
}

func (v *FakeVnode) Read(buf []uint8, off int) (int, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if off >= len(v.data) {
		return 0, 0
	}
	n := copy(buf, v.data[off:])
	return n, 0
}

func (v *FakeVnode) Write(buf []uint8, off int) (int, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	end := off + len(buf)
	if end > len(v.data) {
		grown := make([]uint8, end)
		copy(grown, v.data)
		v.data = grown
	}
	copy(v.data[off:end], buf)
	return len(buf), 0
}

func (v *FakeVnode) Stat() (stat.Stat_t, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var st stat.Stat_t
	st.Wmode(v.mode)
	st.Wsize(uint(len(v.data)))
	return st, 0
}

func (v *FakeVnode) Close() defs.Err_t {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return 0
}

// FakeVFS is a flat in-memory filesystem keyed by canonical path string —
// no directory nesting beyond what the key strings themselves imply, which
// is enough to exercise open/stat/mkdir/rmdir/unlink against a real
// capset.VFS without a real filesystem package (spec §1 "treated as
// external collaborators via their interfaces only").
type FakeVFS struct {
	mu    sync.Mutex
	files map[string]*FakeVnode
	dirs  map[string]bool
}

func NewFakeVFS() *FakeVFS {
	f := &FakeVFS{files: make(map[string]*FakeVnode), dirs: make(map[string]bool)}
	f.dirs["/"] = true
	return f
}

// PutFile seeds path with contents, for test setup before Open is called.
func (f *FakeVFS) PutFile(path string, contents []uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = NewFakeVnode(0644, contents)
}

func (f *FakeVFS) Open(path ustr.Ustr, flags int, mode int) (capset.Vnode, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := path.String()
	if f.dirs[p] {
		return NewFakeVnode(0755|1<<14, nil), 0 // 1<<14 marks "is a directory" for FakeVFS's own Stat consumers
	}
	v, ok := f.files[p]
	if !ok {
		if flags&defs.O_CREAT == 0 {
			return nil, -defs.ENOENT
		}
		v = NewFakeVnode(uint(mode), nil)
		f.files[p] = v
	}
	return v, 0
}

func (f *FakeVFS) Stat(path ustr.Ustr) (stat.Stat_t, defs.Err_t) {
	v, err := f.Open(path, 0, 0)
	if err != 0 {
		return stat.Stat_t{}, err
	}
	return v.Stat()
}

func (f *FakeVFS) Mkdir(path ustr.Ustr, mode int) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path.String()] = true
	return 0
}

func (f *FakeVFS) Rmdir(path ustr.Ustr) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := path.String()
	if !f.dirs[p] {
		return -defs.ENOENT
	}
	delete(f.dirs, p)
	return 0
}

func (f *FakeVFS) Unlink(path ustr.Ustr) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := path.String()
	if _, ok := f.files[p]; !ok {
		return -defs.ENOENT
	}
	delete(f.files, p)
	return 0
}
