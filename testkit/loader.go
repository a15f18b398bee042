package testkit

import (
	"coalos/capset"
	"coalos/defs"
)

// FakeLoader treats the whole image as one executable, writable data
// segment starting at a caller-chosen virtual address — enough to drive
// proc.Create/Execve through vm.AS.MapAnon/WriteBytes without a real ELF
// parser (spec §1 "the ELF loader body" is an external collaborator, out
// of this module's scope).
type FakeLoader struct {
	EntryVA uintptr
	BaseVA  uintptr
}

func NewFakeLoader(entryVA, baseVA uintptr) *FakeLoader {
	return &FakeLoader{EntryVA: entryVA, BaseVA: baseVA}
}

func (l *FakeLoader) Load(image []uint8) (uintptr, []capset.Segment, defs.Err_t) {
	return l.EntryVA, []capset.Segment{
		{VA: l.BaseVA, Bytes: image, Write: true, Exec: true},
	}, 0
}
