package boot

// entry is the raw Multiboot2 entry point (entry_386.s): the loader jumps
// here directly, so it can never be called from Go — it only exists so the
// assembler has a Go declaration to attach the TEXT block to. Whatever
// modified toolchain links this kernel points the ELF entry address at this
// symbol instead of the normal hosted runtime's rt0 (cmd/chentry patches
// exactly that word), which is what lets ordinary Go code run here at all
// with no OS underneath it.
func entry()

// Start is entry_386.s's landing pad: magic is EAX and infoPA is EBX at
// the moment the loader handed off control (spec §6). Paging is still
// off and segments are still the flat ones the loader set up, so every
// pointer Start touches before Sequence enables paging is a direct
// physical address.
func Start(magic, infoPA uint32) {
	Sequence(magic, infoPA)
}
