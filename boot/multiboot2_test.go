package boot

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"coalos/mem"

	"github.com/stretchr/testify/require"
)

// buildInfo assembles a synthetic Multiboot2 info blob in a real Go byte
// slice: ParseInfo reads through unsafe.Pointer(uintptr(pa)), and a live
// slice's address is a real pointer the test process can dereference just
// like boot-time physical memory would be.
func buildInfo(t *testing.T, tags [][]byte) []byte {
	t.Helper()
	buf := make([]byte, 8)
	for _, tag := range tags {
		buf = append(buf, tag...)
	}
	buf = append(buf, 0, 0, 0, 0, 8, 0, 0, 0) // end tag: type=0, size=8
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

func mmapTag(entries [][2]uint64) []byte {
	const entrySize = 24
	tag := make([]byte, 16)
	binary.LittleEndian.PutUint32(tag[0:4], tagMemoryMap)
	binary.LittleEndian.PutUint32(tag[8:12], entrySize)
	binary.LittleEndian.PutUint32(tag[12:16], 0)
	for _, e := range entries {
		entry := make([]byte, entrySize)
		binary.LittleEndian.PutUint64(entry[0:8], e[0])
		binary.LittleEndian.PutUint64(entry[8:16], e[1])
		binary.LittleEndian.PutUint32(entry[16:20], memTypeAvailable)
		tag = append(tag, entry...)
	}
	binary.LittleEndian.PutUint32(tag[4:8], uint32(len(tag)))
	return tag
}

func moduleTag(start, end uint32, cmdline string) []byte {
	tag := make([]byte, 16+len(cmdline)+1)
	binary.LittleEndian.PutUint32(tag[0:4], tagModule)
	binary.LittleEndian.PutUint32(tag[8:12], start)
	binary.LittleEndian.PutUint32(tag[12:16], end)
	copy(tag[16:], cmdline)
	size := len(tag)
	for size%8 != 0 {
		tag = append(tag, 0)
		size++
	}
	binary.LittleEndian.PutUint32(tag[4:8], uint32(len(tag)))
	return tag
}

func pa(buf []byte) mem.Pa_t {
	return mem.Pa_t(uintptr(unsafe.Pointer(&buf[0])))
}

func TestParseInfoMemoryMap(t *testing.T) {
	buf := buildInfo(t, [][]byte{
		mmapTag([][2]uint64{
			{0x100000, 0x1000},
			{0x200000, 0x2000},
		}),
	})
	info := ParseInfo(pa(buf))
	require.Len(t, info.Avail, 2)
	require.EqualValues(t, 0x100000, info.Avail[0].Start)
	require.EqualValues(t, 0x101000, info.Avail[0].End)
	require.EqualValues(t, 0x200000, info.Avail[1].Start)
	require.EqualValues(t, 0x202000, info.Avail[1].End)
}

func TestParseInfoModule(t *testing.T) {
	buf := buildInfo(t, [][]byte{
		moduleTag(0x300000, 0x301000, "/init"),
	})
	info := ParseInfo(pa(buf))
	require.Len(t, info.Modules, 1)
	require.EqualValues(t, 0x300000, info.Modules[0].Start)
	require.EqualValues(t, 0x301000, info.Modules[0].End)
	require.Equal(t, "/init", info.Modules[0].Cmdline)
}

func TestParseInfoSkipsUnknownTags(t *testing.T) {
	unknown := make([]byte, 16)
	binary.LittleEndian.PutUint32(unknown[0:4], 99)
	binary.LittleEndian.PutUint32(unknown[4:8], 16)

	buf := buildInfo(t, [][]byte{
		unknown,
		moduleTag(0x400000, 0x401000, ""),
	})
	info := ParseInfo(pa(buf))
	require.Len(t, info.Modules, 1)
	require.EqualValues(t, 0x400000, info.Modules[0].Start)
}

func TestInfoRange(t *testing.T) {
	buf := buildInfo(t, nil)
	r := InfoRange(pa(buf))
	require.EqualValues(t, len(buf), r.End-r.Start)
}
