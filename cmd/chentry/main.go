// Command chentry modifies the entry address of a 32-bit ELF binary —
// used to point the kernel image's entry at boot.entry after linking,
// since the linked runtime's own rt0 is not where execution should start
// on bare metal (see the doc comment on boot.entry).
package main

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strconv"
)

// usage prints a small help message and terminates the program.
func usage(me string) {
	fmt.Printf("%s <filename> <addr>\n\nChange the ELF entry point of <filename> to <addr>\n", me)
	os.Exit(1)
}

// chkELF validates the ELF file header to ensure we are modifying the correct
// type of binary.  It exits the program if any of the checks fail.
func chkELF(eh *elf.FileHeader) {
	// elf.NewFile has already rejected a file whose magic bytes are wrong.
	// Only little-endian 32-bit x86 executables are supported (spec §6
	// "32-bit x86").
	if eh.Data != elf.ELFDATA2LSB {
		log.Fatal("not little-endian?")
	}
	if eh.Class != elf.ELFCLASS32 {
		log.Fatal("not a 32 bit elf")
	}
	if eh.Type != elf.ET_EXEC {
		log.Fatal("not an executable elf")
	}
	if eh.Machine != elf.EM_386 {
		log.Fatal("not an i386 elf")
	}
}

// entryOffset is the byte offset of e_entry within an Elf32_Ehdr:
// e_ident[16] + e_type(2) + e_machine(2) + e_version(4).
const entryOffset = 16 + 2 + 2 + 4

// main drives the entry point update.  It expects a filename and an address
// value on the command line and rewrites the ELF header accordingly.
func main() {
	if len(os.Args) != 3 {
		usage(os.Args[0])
	}
	fn := os.Args[1]
	addr, err := parseAddr(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}
	if addr>>32 != 0 {
		log.Fatal("entry does not fit in a 32bit pointer")
	}
	f, err := os.OpenFile(fn, os.O_RDWR, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		log.Fatal(err)
	}
	chkELF(&ef.FileHeader)

	fmt.Printf("using address 0x%x\n", addr)

	// e_entry is a single little-endian uint32 at entryOffset in an
	// Elf32_Ehdr; elf.FileHeader's in-memory field layout doesn't match
	// the on-disk struct, so the entry word is patched directly rather
	// than writing the whole parsed header back out.
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(addr))
	if _, err := f.WriteAt(buf[:], entryOffset); err != nil {
		log.Fatal(err)
	}
}

// parseAddr converts the supplied string into a uint64 address.  The syntax
// matches that of C's strtoul with a base of 0, allowing both decimal and
// hexadecimal numbers.
func parseAddr(s string) (uint64, error) {
	a, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return a, nil
}
