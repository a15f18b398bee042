// Package boot brings the kernel up from the Multiboot2 handoff (spec §6
// Sequence): parse the loader's info blob, build the bootstrap page
// directory and enable paging, bring up the frame allocator and kernel
// heap, install the GDT/IDT/PIC, start the scheduler, and launch the init
// process from the loader-supplied module. The teacher has no equivalent
// — Biscuit's entry and early MMU bring-up live in its modified runtime,
// outside this repository's src/kernel package — so Sequence is built
// fresh from spec §6, wiring every subsystem package (mem, cpu, irq,
// sched, sysc, klog, capset) the rest of this tree already built.
package boot

import (
	"unsafe"

	"coalos/accnt"
	"coalos/capset"
	"coalos/cpu"
	"coalos/fd"
	"coalos/irq"
	"coalos/klog"
	"coalos/mem"
	"coalos/proc"
	"coalos/sched"
	"coalos/sysc"
	"coalos/ustr"
	"coalos/vfsfd"
)

var (
	physmem mem.Physmem_t
	engine  mem.Engine
	arena   mem.Arena
	buddy   *mem.Buddy
	kheap   *mem.Allocator
	tss     cpu.TSS_t
	gdt     cpu.GDT_t
	idt     irq.IDT
)

// loadTable builds the 6-byte LGDT/LIDT pseudo-descriptor (limit:2,
// base:4) by hand as a flat byte array — a Go struct{uint16;uint32} would
// leave padding before the uint32 field, which LGDT/LIDT would read as
// part of the base address.
func loadTable(limit int, base unsafe.Pointer, load func(uintptr)) {
	var d [6]byte
	l := uint16(limit - 1)
	b := uint32(uintptr(base))
	d[0] = byte(l)
	d[1] = byte(l >> 8)
	d[2] = byte(b)
	d[3] = byte(b >> 8)
	d[4] = byte(b >> 16)
	d[5] = byte(b >> 24)
	load(uintptr(unsafe.Pointer(&d[0])))
}

// Sequence is the full boot handoff (spec §6): magic and infoPA are
// exactly what the loader left in EAX/EBX. It never returns — the last
// step dispatches the init task, and every task thereafter resumes
// through sched.Yield/Start, not back through here.
func Sequence(magic, infoPA uint32) {
	if magic != Magic {
		for {
			cpu.Hlt()
		}
	}

	info := ParseInfo(mem.Pa_t(infoPA))
	if len(info.Modules) == 0 {
		for {
			cpu.Hlt()
		}
	}
	initModule := info.Modules[0]

	bootalloc := &mem.BootAllocator{}
	kernelRange := mem.Range{Start: KernelPhysBase, End: KernelPhysBase + kernelWindow}
	bootalloc.InitBoot(info.Avail, kernelRange, InfoRange(mem.Pa_t(infoPA)))

	var bootFrames []mem.Range
	tracked := func() (mem.Pa_t, bool) {
		pa, ok := bootalloc.Alloc()
		if ok {
			bootFrames = append(bootFrames, mem.Range{Start: pa, End: pa + mem.PGSIZE})
		}
		return pa, ok
	}

	pd, ok := buildBootstrapDirectory(tracked)
	if !ok {
		for {
			cpu.Hlt()
		}
	}
	enablePaging(pd)
	if _, _, _, edx := cpu.CPUID(1); edx&cpu.CPUID1_EDX_PSE != 0 {
		cpu.WriteCR4(cpu.ReadCR4() | cpu.CR4_PSE)
	}

	reserved := append([]mem.Range{
		kernelRange,
		InfoRange(mem.Pa_t(infoPA)),
		{Start: mem.Pa_t(initModule.Start), End: mem.Pa_t(initModule.End)},
	}, bootFrames...)
	physmem.Init(info.Avail, reserved)

	engine = mem.Engine{Frames: &physmem, Invlpg: func(va mem.Va_t) { cpu.Invlpg(uintptr(va)) }, KernelPD: pd}
	arena = mem.Arena{Engine: &engine}
	engine.Store = mem.NewTempStore(&arena)

	heapBase := mem.TempBase - mem.Va_t(KernelHeapSize)
	mapKernelHeap(pd, heapBase, KernelHeapSize)
	buddy = mem.NewBuddy(heapBase, KernelHeapSize)
	kheap = mem.NewAllocator(buddy)

	// Copy the init module's bytes out of their (about-to-be-reclaimable)
	// boot-time physical window into kernel heap memory it owns going
	// forward.
	initImage := copyModuleBytes(initModule)

	klog.InitSerial()
	klog.Install()

	gdt = cpu.BuildGDT(&tss)
	loadTable(len(gdt)*8, unsafe.Pointer(&gdt), cpu.LoadGDT)
	idt = irq.Build()
	loadTable(len(idt)*8, unsafe.Pointer(&idt), cpu.LoadIDT)
	cpu.LoadTR(cpu.SelTSS)

	irq.RemapPIC()
	irq.InstallTimer()

	proc.Engine = &engine
	proc.Frames = &physmem
	proc.Arena = &arena
	proc.KStacks = kheap

	table := proc.Global()
	_, idleTCB, ierr := proc.NewIdle(table)
	if ierr != 0 {
		for {
			cpu.Hlt()
		}
	}
	s := sched.Init(table, idleTCB)
	accnt.NowNanos = func() int64 { return int64(s.Now()) * 1000000 }
	s.Track(idleTCB)
	sched.TSS = &tss
	irq.TickFn = s.Tick

	InstallParams(BootParams)
	sysc.Install()

	klog.BootBanner(physmem.Total(), int64(KernelHeapSize), KernelHeapSize/mem.PGSIZE)

	initPCB, initTCB, cerr := proc.Create(table, 0, initImage)
	if cerr != 0 {
		klog.Errorf("boot: failed to create init process: err=%d", cerr)
		for {
			cpu.Hlt()
		}
	}
	installInitFds(initPCB)
	s.Track(initTCB)

	klog.Infof("boot: launching init (pid=%d)", initPCB.PID)
	s.Start(initTCB)

	for {
		cpu.Hlt()
	}
}

// installInitFds gives the init process slots 0-2 (stdin/stdout/stderr)
// all wired to the console, and a cwd rooted at "/" — the three open
// files and the starting directory every later fork/exec inherits from
// (spec §3 "fd 0/1/2 console by convention").
func installInitFds(pcb *proc.PCB) {
	for i := 0; i < 3; i++ {
		console := vfsfd.NewConsole(capset.TTYCap.Get())
		pcb.Fds.InstallAt(i, &fd.Fd_t{Fops: console, Perms: fd.FD_READ | fd.FD_WRITE})
	}

	root, rerr := capset.VFSCap.Get().Open(ustr.MkUstrRoot(), 0, 0)
	if rerr != 0 {
		klog.Warnf("boot: could not open root directory for init's cwd: err=%d", rerr)
		return
	}
	rootFd := &fd.Fd_t{Fops: vfsfd.NewVnodeFile(root), Perms: fd.FD_READ}
	pcb.Cwd = fd.MkRootCwd(rootFd)
}

// mapKernelHeap installs PTEs covering [base, base+size) in pd, backed by
// freshly allocated frames — the kernel heap has no demand paging of its
// own (spec §4.4), every page is resident from the moment Buddy/Allocator
// are constructed over it.
func mapKernelHeap(pd mem.Pa_t, base mem.Va_t, size int) {
	for off := 0; off < size; off += mem.PGSIZE {
		pa, ok := physmem.AllocFrame()
		if !ok {
			panic("boot: out of memory mapping kernel heap")
		}
		if err := engine.MapRange(pd, base+mem.Va_t(off), pa, mem.PGSIZE, mem.PTE_W); err != nil {
			panic("boot: " + err.Error())
		}
	}
}

// copyModuleBytes reads the loader-supplied init binary out of its
// (identity-mapped, spec §6) physical extent into a plain Go byte slice.
func copyModuleBytes(m Module) []uint8 {
	n := int(m.End - m.Start)
	src := unsafe.Slice((*uint8)(unsafe.Pointer(uintptr(m.Start))), n)
	dst := make([]uint8, n)
	copy(dst, src)
	return dst
}
