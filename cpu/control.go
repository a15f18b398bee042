package cpu

// Cli disables interrupts and returns the prior EFLAGS value (so the
// caller can restore it exactly — spec §5 "IRQ-off critical sections begin
// with a single EFLAGS save and a cli").
//
//go:noescape
func Cli() uintptr

// Sti restores EFLAGS (and therefore the interrupt-enable flag) to a value
// previously returned by Cli.
//
//go:noescape
func Sti(saved uintptr)

// Hlt halts the CPU until the next interrupt. Used by the idle task.
//
//go:noescape
func Hlt()

// ReadCR2 returns the faulting address recorded by the last page fault.
//
//go:noescape
func ReadCR2() uintptr

// ReadCR0/WriteCR0 access CR0, used to flip PG (bit 31) once the bootstrap
// page directory is loaded (spec §4.2 "paging enabled").
//
//go:noescape
func ReadCR0() uintptr

//go:noescape
func WriteCR0(v uintptr)

// ReadCR3/WriteCR3 get and set the physical address of the active page
// directory.
//
//go:noescape
func ReadCR3() uintptr

//go:noescape
func WriteCR3(pd uintptr)

// ReadCR4/WriteCR4 access CR4, used to toggle CR4.PSE (spec §4.2).
//
//go:noescape
func ReadCR4() uintptr

//go:noescape
func WriteCR4(v uintptr)

// Invlpg invalidates the TLB entry for one virtual address.
//
//go:noescape
func Invlpg(va uintptr)

// Control-register bits and CPUID feature bits. boot.Sequence checks
// CPUID1_EDX_PSE and sets CR4_PSE when it is present.
const (
	CR0_PG  = 1 << 31
	CR4_PSE = 1 << 4

	CPUID1_EDX_PSE = 1 << 3
	// CPUID extended function 0x80000001, EDX bit 20: NX/XD support. Only
	// meaningful under PAE, which this kernel's 2-level tables don't use
	// (spec §4.2); boot neither checks nor applies it.
	CPUIDExt1_EDX_NX = 1 << 20
)

// CPUID executes the CPUID instruction and returns eax,ebx,ecx,edx.
//
//go:noescape
func CPUID(fn uint32) (eax, ebx, ecx, edx uint32)

// LoadGDT loads the GDT register from a 6-byte pseudo-descriptor
// (limit:2, base:4) and reloads DS, ES and SS with the kernel data
// selector spec §6 names (0x10). CS, FS and GS are not reloaded.
//
//go:noescape
func LoadGDT(descriptor uintptr)

// LoadIDT loads the IDT register the same way.
//
//go:noescape
func LoadIDT(descriptor uintptr)

// LoadTR loads the task register with the TSS selector (0x28).
//
//go:noescape
func LoadTR(selector uint16)
