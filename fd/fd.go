package fd

import "sync"

import "coalos/bpath"
import "coalos/defs"
import "coalos/fdops"
import "coalos/ustr"

/// File descriptor permission bits.
const (
	FD_READ    = 0x1 /// read permission
	FD_WRITE   = 0x2 /// write permission
	FD_CLOEXEC = 0x4 /// close-on-exec flag
)

/// Fd_t represents an open file descriptor.
type Fd_t struct {
       // fops is an interface implemented via a "pointer receiver", thus fops
       // is a reference, not a value
       Fops  fdops.Fdops_i /// descriptor operations
       Perms int           /// permission bits
}

/// Copyfd duplicates an open file descriptor by reopening it.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

/// Close_panic closes the descriptor and panics on failure.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

/// Cwd_t tracks the current working directory for a process.
type Cwd_t struct {
       sync.Mutex // to serialize chdirs
       Fd   *Fd_t    /// current directory fd
       Path ustr.Ustr /// canonical path
}

/// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	} else {
		full := append(cwd.Path, '/')
		return append(full, p...)
	}
}

/// Canonicalpath resolves path components relative to cwd.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	p1 := cwd.Fullpath(p)
	return bpath.Canonicalize(p1)
}

/// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(fd *Fd_t) *Cwd_t {
	c := &Cwd_t{}
	c.Fd = fd
	c.Path = ustr.MkUstrRoot()
	return c
}

/// NumFds is the fixed fd-table size (spec §3 "File descriptor table...
/// fixed-size array of 16 slots per process").
const NumFds = 16

/// Table_t is one process's fd table: a fixed array of slots, each either
/// empty or holding an open Fd_t, protected by its own lock (spec §3,
/// §5 lock order "fd table" between mm and signal).
type Table_t struct {
	sync.Mutex
	slots [NumFds]*Fd_t
}

/// Install places fd in the lowest free slot and returns its index, or
/// -EMFILE-shaped failure (-1, false) if the table is full.
func (t *Table_t) Install(fd *Fd_t) (int, bool) {
	t.Lock()
	defer t.Unlock()
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = fd
			return i, true
		}
	}
	return -1, false
}

/// InstallAt places fd at a specific index, used by dup2 (spec §6 SYS_DUP2).
/// dup2 onto an already-open newfd must close the old occupant first
/// (Linux dup2(2) semantics) — otherwise the old Fdops_i leaks, and for a
/// pipe end specifically its reader/writer refcount never drops, so the
/// pipe never sees EOF.
func (t *Table_t) InstallAt(idx int, fd *Fd_t) defs.Err_t {
	if idx < 0 || idx >= NumFds {
		return -defs.EBADF
	}
	t.Lock()
	old := t.slots[idx]
	t.slots[idx] = fd
	t.Unlock()
	if old != nil {
		Close_panic(old)
	}
	return 0
}

/// Get returns the descriptor at idx, or ok=false if the slot is empty or
/// out of range.
func (t *Table_t) Get(idx int) (*Fd_t, bool) {
	t.Lock()
	defer t.Unlock()
	if idx < 0 || idx >= NumFds || t.slots[idx] == nil {
		return nil, false
	}
	return t.slots[idx], true
}

/// Remove clears slot idx, returning the descriptor that was there.
func (t *Table_t) Remove(idx int) (*Fd_t, bool) {
	t.Lock()
	defer t.Unlock()
	if idx < 0 || idx >= NumFds || t.slots[idx] == nil {
		return nil, false
	}
	fd := t.slots[idx]
	t.slots[idx] = nil
	return fd, true
}

/// CopyInto duplicates every occupied slot of t into dst (fork inherits the
/// fd table: shared handle, independent slot, spec §3).
func (t *Table_t) CopyInto(dst *Table_t) defs.Err_t {
	t.Lock()
	defer t.Unlock()
	for i, s := range t.slots {
		if s == nil {
			continue
		}
		nfd, err := Copyfd(s)
		if err != 0 {
			return err
		}
		dst.slots[i] = nfd
	}
	return 0
}

/// CloseAll closes every occupied slot, used on process exit.
func (t *Table_t) CloseAll() {
	t.Lock()
	defer t.Unlock()
	for i, s := range t.slots {
		if s == nil {
			continue
		}
		Close_panic(s)
		t.slots[i] = nil
	}
}
