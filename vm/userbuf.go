package vm

import (
	"coalos/defs"
	"coalos/mem"
)

// Userbuf is a cursor over a user-space buffer, used by read/write syscall
// handlers so they can stream an arbitrary-length I/O in page-sized chunks
// without the caller re-deriving offsets (grounded on the teacher's
// Userbuf_t; the iovec/mmap-file variants are dropped along with the
// teacher's shared-file-mapping machinery — out of scope here, spec §1).
type Userbuf struct {
	as     *AS
	uva    mem.Va_t
	length int
	off    int
}

func (u *Userbuf) Init(as *AS, uva mem.Va_t, length int) {
	if length < 0 {
		panic("vm: negative userbuf length")
	}
	u.as, u.uva, u.length, u.off = as, uva, length, 0
}

func (u *Userbuf) Remain() int   { return u.length - u.off }
func (u *Userbuf) Totalsz() int  { return u.length }

// Uioread copies from the user buffer into dst.
func (u *Userbuf) Uioread(dst []uint8) (int, defs.Err_t) {
	return u.tx(dst, false)
}

// Uiowrite copies src into the user buffer.
func (u *Userbuf) Uiowrite(src []uint8) (int, defs.Err_t) {
	return u.tx(src, true)
}

func (u *Userbuf) tx(buf []uint8, write bool) (int, defs.Err_t) {
	n := len(buf)
	if rem := u.Remain(); n > rem {
		n = rem
	}
	if n == 0 {
		return 0, 0
	}
	var err defs.Err_t
	if write {
		err = u.as.K2user(buf[:n], u.uva+mem.Va_t(u.off))
	} else {
		err = u.as.User2k(buf[:n], u.uva+mem.Va_t(u.off))
	}
	if err != 0 {
		return 0, err
	}
	u.off += n
	return n, 0
}

// Fakeubuf implements the same read/write interface as Userbuf but copies
// to/from an in-kernel slice — used when kernel code must treat its own
// buffer as if it were a user buffer (teacher's Fakeubuf_t, unchanged
// shape).
type Fakeubuf struct {
	buf []uint8
}

func (f *Fakeubuf) Init(buf []uint8) { f.buf = buf }
func (f *Fakeubuf) Remain() int      { return len(f.buf) }
func (f *Fakeubuf) Totalsz() int     { return len(f.buf) }

func (f *Fakeubuf) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, f.buf)
	f.buf = f.buf[n:]
	return n, 0
}

func (f *Fakeubuf) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(f.buf, src)
	f.buf = f.buf[n:]
	return n, 0
}
