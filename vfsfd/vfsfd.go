// Package vfsfd adapts the capability collaborators (capset.Vnode,
// capset.TTY) and the in-kernel pipe buffer (circbuf.Circbuf_t) to the
// fdops.Fdops_i interface every fd table slot holds (spec §3 "File
// descriptor table... each slot holds ... Vnode | pipe-end | console").
// The teacher's equivalent lives in its fs package as a family of
// *_fops_t types wrapping Inode_t; none of that package survived
// retrieval, so these adapters are built fresh from fdops.Fdops_i's
// contract and fd.Fd_t's "fops is an interface implemented via a pointer
// receiver" comment.
package vfsfd

import (
	"sync"

	"coalos/capset"
	"coalos/circbuf"
	"coalos/defs"
	"coalos/fdops"
	"coalos/mem"
)

// VnodeFile adapts a capset.Vnode (a path-resolved, already-open file) to
// Fdops_i, tracking its own read/write cursor (spec §6 VFS collaborator
// contract: "read(vnode, buf, n, off)").
type VnodeFile struct {
	sync.Mutex
	V   capset.Vnode
	off int
}

func NewVnodeFile(v capset.Vnode) *VnodeFile {
	return &VnodeFile{V: v}
}

func (f *VnodeFile) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	buf := make([]uint8, dst.Remain())
	n, err := f.V.Read(buf, f.off)
	if err != 0 {
		return 0, err
	}
	wrote, werr := dst.Uiowrite(buf[:n])
	if werr != 0 {
		return 0, werr
	}
	f.off += wrote
	return wrote, 0
}

func (f *VnodeFile) Write(src fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	wrote, werr := f.V.Write(buf[:n], f.off)
	if werr != 0 {
		return 0, werr
	}
	f.off += wrote
	return wrote, 0
}

func (f *VnodeFile) Close() defs.Err_t { return f.V.Close() }

// Reopen has nothing extra to do for a vnode fd: dup2/fork duplicate the
// Fd_t slot (spec §3 "shared handle, independent slot"), and this adapter
// has no refcounted resource of its own beyond the shared capset.Vnode.
func (f *VnodeFile) Reopen() defs.Err_t { return 0 }

func (f *VnodeFile) Lseek(off int, whence int) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	switch whence {
	case defs.SEEK_SET:
		if off < 0 {
			return 0, -defs.EINVAL
		}
		f.off = off
	case defs.SEEK_CUR:
		if f.off+off < 0 {
			return 0, -defs.EINVAL
		}
		f.off += off
	case defs.SEEK_END:
		st, err := f.V.Stat()
		if err != 0 {
			return 0, err
		}
		if int(st.Size())+off < 0 {
			return 0, -defs.EINVAL
		}
		f.off = int(st.Size()) + off
	default:
		return 0, -defs.EINVAL
	}
	return f.off, 0
}

// Console adapts the single byte-oriented capset.TTY to Fdops_i for fds
// 0/1/2 (spec §6 "fd 0/1/2 point to this device at process creation").
// Reads go through ReadLine (line-buffered, per spec), writes go straight
// to WriteBytes.
type Console struct {
	tty capset.TTY
}

func NewConsole(tty capset.TTY) *Console { return &Console{tty: tty} }

func (c *Console) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, dst.Remain())
	n, err := c.tty.ReadLine(buf)
	if err != 0 {
		return 0, err
	}
	return dst.Uiowrite(buf[:n])
}

func (c *Console) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	return c.tty.WriteBytes(buf[:n])
}

func (c *Console) Close() defs.Err_t          { return 0 }
func (c *Console) Reopen() defs.Err_t         { return 0 }
func (c *Console) Lseek(int, int) (int, defs.Err_t) { return 0, -defs.ESPIPE }

// pipeEnd is the shared state between a pipe's two fd.Fd_t slots: one
// circular buffer, a reference count per side so the last Close of either
// end releases the backing page, and EPIPE-on-write-with-no-readers (spec
// §3 "Pipe... Kernel-resident 4 KiB circular byte buffer", §7 "Pipe
// (EPIPE when writing to a pipe with no readers)").
type pipeEnd struct {
	sync.Mutex
	cb        circbuf.Circbuf_t
	readers   int
	writers   int
}

// PipeReader and PipeWriter are the two Fdops_i-implementing ends of one
// pipe, both backed by the same pipeEnd (grounded on the teacher's
// pipe_t read/write fops split implied by fd.Fd_t.Perms FD_READ/FD_WRITE).
type PipeReader struct{ p *pipeEnd }
type PipeWriter struct{ p *pipeEnd }

// NewPipe allocates a pipe's shared circular buffer and returns its two
// ends, each holding one reference (spec §6 SYS_PIPE "uint[2]").
func NewPipe(frames mem.FrameOwner, arena *mem.Arena) (*PipeReader, *PipeWriter, defs.Err_t) {
	p := &pipeEnd{readers: 1, writers: 1}
	if err := p.cb.Cb_init(mem.PGSIZE, frames, arena); err != 0 {
		return nil, nil, err
	}
	return &PipeReader{p: p}, &PipeWriter{p: p}, 0
}

func (r *PipeReader) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	r.p.Lock()
	defer r.p.Unlock()
	return r.p.cb.Copyout(dst)
}

func (r *PipeReader) Write(fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EBADF }

func (r *PipeReader) Close() defs.Err_t {
	r.p.Lock()
	defer r.p.Unlock()
	r.p.readers--
	if r.p.readers == 0 && r.p.writers == 0 {
		r.p.cb.Cb_release()
	}
	return 0
}

func (r *PipeReader) Reopen() defs.Err_t {
	r.p.Lock()
	defer r.p.Unlock()
	r.p.readers++
	return 0
}

func (r *PipeReader) Lseek(int, int) (int, defs.Err_t) { return 0, -defs.ESPIPE }

func (w *PipeWriter) Read(fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EBADF }

func (w *PipeWriter) Write(src fdops.Userio_i) (int, defs.Err_t) {
	w.p.Lock()
	defer w.p.Unlock()
	if w.p.readers == 0 {
		return 0, -defs.EPIPE
	}
	return w.p.cb.Copyin(src)
}

func (w *PipeWriter) Close() defs.Err_t {
	w.p.Lock()
	defer w.p.Unlock()
	w.p.writers--
	if w.p.readers == 0 && w.p.writers == 0 {
		w.p.cb.Cb_release()
	}
	return 0
}

func (w *PipeWriter) Reopen() defs.Err_t {
	w.p.Lock()
	defer w.p.Unlock()
	w.p.writers++
	return 0
}

func (w *PipeWriter) Lseek(int, int) (int, defs.Err_t) { return 0, -defs.ESPIPE }
