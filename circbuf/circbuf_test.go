package circbuf

import (
	"testing"

	"coalos/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkReady builds a Circbuf_t with its backing buffer already populated,
// bypassing Cb_ensure (which borrows a real temp-arena slot and so needs a
// live CR3 — not available to a hosted test binary). Every data-movement
// method only ever touches Buf/bufsz/head/tail, so this is enough to
// exercise the wraparound arithmetic directly.
func mkReady(bufsz int) *Circbuf_t {
	return &Circbuf_t{Buf: make([]uint8, bufsz), bufsz: bufsz}
}

func TestCircbufEmptyAndFull(t *testing.T) {
	cb := mkReady(4)
	assert.True(t, cb.Empty())
	assert.False(t, cb.Full())
	assert.Equal(t, 4, cb.Left())
	assert.Equal(t, 0, cb.Used())

	cb.head = 4
	assert.True(t, cb.Full())
	assert.False(t, cb.Empty())
	assert.Equal(t, 0, cb.Left())
	assert.Equal(t, 4, cb.Used())
}

func TestCircbufCopyinFillsBuffer(t *testing.T) {
	cb := mkReady(4)
	src := &vm.Fakeubuf{}
	src.Init([]byte{1, 2, 3, 4})

	n, err := cb.Copyin(src)
	require.Zero(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, cb.Full())
	assert.Equal(t, []uint8{1, 2, 3, 4}, cb.Buf)
}

func TestCircbufCopyinStopsWhenFull(t *testing.T) {
	cb := mkReady(4)
	cb.Buf[0] = 0
	cb.head, cb.tail = 2, 0 // 2 bytes already used, 2 bytes left

	src := &vm.Fakeubuf{}
	src.Init([]byte{9, 9, 9, 9})
	n, err := cb.Copyin(src)
	require.Zero(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, cb.Full())
}

func TestCircbufCopyinOnFullReturnsZero(t *testing.T) {
	cb := mkReady(4)
	cb.head, cb.tail = 4, 0

	src := &vm.Fakeubuf{}
	src.Init([]byte{1})
	n, err := cb.Copyin(src)
	require.Zero(t, err)
	assert.Equal(t, 0, n)
}

func TestCircbufCopyoutDrainsBuffer(t *testing.T) {
	cb := mkReady(4)
	copy(cb.Buf, []byte{1, 2, 3, 4})
	cb.head = 4

	dst := &vm.Fakeubuf{}
	out := make([]byte, 4)
	dst.Init(out)

	n, err := cb.Copyout(dst)
	require.Zero(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, cb.Empty())
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestCircbufCopyoutWraparound(t *testing.T) {
	cb := mkReady(4)
	// tail starts mid-buffer, head has wrapped past the end: logical
	// content is Buf[tail%4:] followed by Buf[:head%4].
	copy(cb.Buf, []byte{'C', 'D', 'A', 'B'})
	cb.tail = 2
	cb.head = 6 // used = 4, wraps once

	dst := &vm.Fakeubuf{}
	out := make([]byte, 4)
	dst.Init(out)

	n, err := cb.Copyout(dst)
	require.Zero(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{'A', 'B', 'C', 'D'}, out)
	assert.True(t, cb.Empty())
}

func TestCircbufCopyoutOnEmptyReturnsZero(t *testing.T) {
	cb := mkReady(4)
	dst := &vm.Fakeubuf{}
	dst.Init(make([]byte, 4))
	n, err := cb.Copyout(dst)
	require.Zero(t, err)
	assert.Equal(t, 0, n)
}

func TestCircbufCopyoutNRespectsMax(t *testing.T) {
	cb := mkReady(4)
	copy(cb.Buf, []byte{1, 2, 3, 4})
	cb.head = 4

	dst := &vm.Fakeubuf{}
	out := make([]byte, 4)
	dst.Init(out)

	n, err := cb.Copyout_n(dst, 2)
	require.Zero(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, cb.Used())
}

func TestCircbufAdvheadAdvtail(t *testing.T) {
	cb := mkReady(4)
	cb.Advhead(3)
	assert.Equal(t, 3, cb.Used())
	cb.Advtail(1)
	assert.Equal(t, 2, cb.Used())
}

func TestCircbufAdvheadPanicsWhenFull(t *testing.T) {
	cb := mkReady(4)
	cb.head = 4
	assert.Panics(t, func() { cb.Advhead(1) })
}

func TestCircbufAdvtailPanicsWhenEmpty(t *testing.T) {
	cb := mkReady(4)
	assert.Panics(t, func() { cb.Advtail(1) })
}

func TestCircbufBufsz(t *testing.T) {
	cb := mkReady(7)
	assert.Equal(t, 7, cb.Bufsz())
}
