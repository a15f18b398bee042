package vfsfd

import (
	"testing"

	"coalos/defs"
	"coalos/stat"
	"coalos/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVnode is an in-memory capset.Vnode double: enough for VnodeFile's
// cursor arithmetic and Lseek's SEEK_END stat lookup, without any VFS
// collaborator behind it.
type fakeVnode struct {
	data   []uint8
	closed int
	st     stat.Stat_t
	statErr defs.Err_t
}

func (v *fakeVnode) Read(buf []uint8, off int) (int, defs.Err_t) {
	if off >= len(v.data) {
		return 0, 0
	}
	n := copy(buf, v.data[off:])
	return n, 0
}

func (v *fakeVnode) Write(buf []uint8, off int) (int, defs.Err_t) {
	end := off + len(buf)
	if end > len(v.data) {
		grown := make([]uint8, end)
		copy(grown, v.data)
		v.data = grown
	}
	copy(v.data[off:], buf)
	return len(buf), 0
}

func (v *fakeVnode) Stat() (stat.Stat_t, defs.Err_t) {
	if v.statErr != 0 {
		return stat.Stat_t{}, v.statErr
	}
	return v.st, 0
}

func (v *fakeVnode) Close() defs.Err_t { v.closed++; return 0 }

func TestVnodeFileReadAdvancesCursor(t *testing.T) {
	vn := &fakeVnode{data: []uint8{1, 2, 3, 4, 5}}
	f := NewVnodeFile(vn)

	dst := &vm.Fakeubuf{}
	dst.Init(make([]uint8, 3))
	n, err := f.Read(dst)
	require.Zero(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.off)

	dst2 := &vm.Fakeubuf{}
	dst2.Init(make([]uint8, 3))
	n2, err2 := f.Read(dst2)
	require.Zero(t, err2)
	assert.Equal(t, 2, n2, "only 2 bytes remain past offset 3")
}

func TestVnodeFileWriteAdvancesCursorAndGrowsFile(t *testing.T) {
	vn := &fakeVnode{}
	f := NewVnodeFile(vn)

	src := &vm.Fakeubuf{}
	src.Init([]uint8{9, 9, 9})
	n, err := f.Write(src)
	require.Zero(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uint8{9, 9, 9}, vn.data)
	assert.Equal(t, 3, f.off)
}

func TestVnodeFileCloseDelegatesToVnode(t *testing.T) {
	vn := &fakeVnode{}
	f := NewVnodeFile(vn)
	require.Zero(t, f.Close())
	assert.Equal(t, 1, vn.closed)
}

func TestVnodeFileLseekSetCurEnd(t *testing.T) {
	vn := &fakeVnode{data: []uint8{1, 2, 3, 4}}
	vn.st.Wsize(4)
	f := NewVnodeFile(vn)

	off, err := f.Lseek(2, defs.SEEK_SET)
	require.Zero(t, err)
	assert.Equal(t, 2, off)

	off, err = f.Lseek(1, defs.SEEK_CUR)
	require.Zero(t, err)
	assert.Equal(t, 3, off)

	off, err = f.Lseek(0, defs.SEEK_END)
	require.Zero(t, err)
	assert.Equal(t, 4, off)

	_, err = f.Lseek(-100, defs.SEEK_SET)
	assert.Equal(t, -defs.EINVAL, err)
}

// fakeTTY is an in-memory capset.TTY double for Console.
type fakeTTY struct {
	line    []uint8
	written []uint8
}

func (c *fakeTTY) ReadLine(buf []uint8) (int, defs.Err_t) {
	n := copy(buf, c.line)
	return n, 0
}

func (c *fakeTTY) WriteBytes(buf []uint8) (int, defs.Err_t) {
	c.written = append(c.written, buf...)
	return len(buf), 0
}

func TestConsoleReadLineCopiesFromTTY(t *testing.T) {
	tty := &fakeTTY{line: []uint8("hi\n")}
	c := NewConsole(tty)

	dst := &vm.Fakeubuf{}
	dst.Init(make([]uint8, 3))
	n, err := c.Read(dst)
	require.Zero(t, err)
	assert.Equal(t, 3, n)
}

func TestConsoleWriteForwardsToTTY(t *testing.T) {
	tty := &fakeTTY{}
	c := NewConsole(tty)

	src := &vm.Fakeubuf{}
	src.Init([]uint8("hello"))
	n, err := c.Write(src)
	require.Zero(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []uint8("hello"), tty.written)
}

func TestConsoleLseekIsESPIPE(t *testing.T) {
	c := NewConsole(&fakeTTY{})
	_, err := c.Lseek(0, 0)
	assert.Equal(t, -defs.ESPIPE, err)
}

// Pipe refcount/close semantics (spec §3 Pipe, the property the dup2 fix
// protects: a reader/writer's count must reach zero before the backing
// buffer is released). NewPipe's Cb_init only records fields — it never
// calls Cb_ensure — so these are exercisable without a real temp-mapping
// arena as long as no test here ever calls Read/Write (which would reach
// Cb_ensure's arena.Map).
func TestNewPipeStartsWithOneReaderAndOneWriter(t *testing.T) {
	r, w, err := NewPipe(nil, nil)
	require.Zero(t, err)
	assert.Equal(t, 1, r.p.readers)
	assert.Equal(t, 1, r.p.writers)
	assert.Same(t, r.p, w.p)
}

func TestPipeReaderReopenIncrementsReaders(t *testing.T) {
	r, _, _ := NewPipe(nil, nil)
	require.Zero(t, r.Reopen())
	assert.Equal(t, 2, r.p.readers)
}

func TestPipeWriterReopenIncrementsWriters(t *testing.T) {
	_, w, _ := NewPipe(nil, nil)
	require.Zero(t, w.Reopen())
	assert.Equal(t, 2, w.p.writers)
}

func TestPipeReaderCloseDecrementsReadersWithoutReleasingWhileWriterRemains(t *testing.T) {
	r, _, _ := NewPipe(nil, nil)
	require.Zero(t, r.Close())
	assert.Equal(t, 0, r.p.readers)
	assert.Equal(t, 1, r.p.writers, "writer side untouched")
}

func TestPipeBothEndsClosedReleasesWithoutPanicking(t *testing.T) {
	r, w, _ := NewPipe(nil, nil)
	require.Zero(t, r.Close())
	require.Zero(t, w.Close())
	assert.Equal(t, 0, r.p.readers)
	assert.Equal(t, 0, w.p.writers)
	assert.Nil(t, r.p.cb.Buf, "buffer was never allocated, so release is a no-op")
}

func TestPipeWriterWriteReturnsEPIPEWhenNoReaders(t *testing.T) {
	r, w, _ := NewPipe(nil, nil)
	require.Zero(t, r.Close())

	_, err := w.Write(&vm.Fakeubuf{})
	assert.Equal(t, -defs.EPIPE, err, "no Copyin call is reached, so no real backing page is needed")
}

func TestPipeReaderWriteIsAlwaysEBADF(t *testing.T) {
	r, _, _ := NewPipe(nil, nil)
	_, err := r.Write(&vm.Fakeubuf{})
	assert.Equal(t, -defs.EBADF, err)
}

func TestPipeWriterReadIsAlwaysEBADF(t *testing.T) {
	_, w, _ := NewPipe(nil, nil)
	_, err := w.Read(&vm.Fakeubuf{})
	assert.Equal(t, -defs.EBADF, err)
}

func TestPipeLseekIsESPIPE(t *testing.T) {
	r, w, _ := NewPipe(nil, nil)
	_, err := r.Lseek(0, 0)
	assert.Equal(t, -defs.ESPIPE, err)
	_, err = w.Lseek(0, 0)
	assert.Equal(t, -defs.ESPIPE, err)
}
