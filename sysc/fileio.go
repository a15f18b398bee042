package sysc

import (
	"coalos/bpath"
	"coalos/capset"
	"coalos/defs"
	"coalos/fd"
	"coalos/irq"
	"coalos/mem"
	"coalos/proc"
	"coalos/ustr"
	"coalos/vfsfd"
	"coalos/vm"
)

// resolvePath canonicalizes a syscall's path argument against pcb's
// current working directory, falling back to treating it as already
// absolute if no cwd has been established yet (spec §6 VFS collaborator
// contract takes a single resolved path).
func resolvePath(pcb *proc.PCB, path ustr.Ustr) ustr.Ustr {
	pcb.Lock()
	cwd := pcb.Cwd
	pcb.Unlock()
	if cwd != nil {
		return cwd.Canonicalpath(path)
	}
	return bpath.Canonicalize(path)
}

// readWholeFile loads path's full contents through the VFS collaborator
// (spec §4.8 Execve "build a new mm from the target ELF"): Coal OS's
// loader takes a byte slice, not a vnode, so execve must slurp the image
// before handing it to proc.Execve.
func readWholeFile(path ustr.Ustr) ([]uint8, defs.Err_t) {
	vn, err := capset.VFSCap.Get().Open(path, defs.O_RDONLY, 0)
	if err != 0 {
		return nil, err
	}
	st, serr := vn.Stat()
	if serr != 0 {
		vn.Close()
		return nil, serr
	}
	buf := make([]uint8, st.Size())
	n, rerr := vn.Read(buf, 0)
	vn.Close()
	if rerr != 0 {
		return nil, rerr
	}
	return buf[:n], 0
}

func sysRead(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	fdo, ok := pcb.Fds.Get(int(a.A0))
	if !ok {
		return int32(-defs.EBADF)
	}
	if fdo.Perms&fd.FD_READ == 0 {
		return int32(-defs.EBADF)
	}
	var ub vm.Userbuf
	ub.Init(pcb.AS, mem.Va_t(a.A1), int(a.A2))
	n, err := fdo.Fops.Read(&ub)
	if err != 0 {
		return int32(err)
	}
	return int32(n)
}

func sysWrite(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	fdo, ok := pcb.Fds.Get(int(a.A0))
	if !ok {
		return int32(-defs.EBADF)
	}
	if fdo.Perms&fd.FD_WRITE == 0 {
		return int32(-defs.EBADF)
	}
	var ub vm.Userbuf
	ub.Init(pcb.AS, mem.Va_t(a.A1), int(a.A2))
	n, err := fdo.Fops.Write(&ub)
	if err != 0 {
		return int32(err)
	}
	return int32(n)
}

func sysOpen(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	flags := int(a.A1)
	mode := int(a.A2)
	canon := resolvePath(pcb, path)

	vn, err := capset.VFSCap.Get().Open(canon, flags, mode)
	if err != 0 {
		return int32(err)
	}

	perms := 0
	switch flags & 0x3 {
	case defs.O_RDONLY:
		perms = fd.FD_READ
	case defs.O_WRONLY:
		perms = fd.FD_WRITE
	case defs.O_RDWR:
		perms = fd.FD_READ | fd.FD_WRITE
	}

	nfd := &fd.Fd_t{Fops: vfsfd.NewVnodeFile(vn), Perms: perms}
	idx, ok := pcb.Fds.Install(nfd)
	if !ok {
		vn.Close()
		return int32(-defs.EMFILE)
	}
	return int32(idx)
}

func sysClose(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	fdo, ok := pcb.Fds.Remove(int(a.A0))
	if !ok {
		return int32(-defs.EBADF)
	}
	return int32(fdo.Fops.Close())
}

func sysLseek(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	fdo, ok := pcb.Fds.Get(int(a.A0))
	if !ok {
		return int32(-defs.EBADF)
	}
	off, err := fdo.Fops.Lseek(int(int32(a.A1)), int(a.A2))
	if err != 0 {
		return int32(err)
	}
	return int32(off)
}

func sysDup2(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	oldfd := int(a.A0)
	newfd := int(a.A1)
	fdo, ok := pcb.Fds.Get(oldfd)
	if !ok {
		return int32(-defs.EBADF)
	}
	if oldfd == newfd {
		// dup2(x, x) is a documented no-op: newfd stays open on the same
		// description, nothing is closed.
		return int32(newfd)
	}
	dup, err := fd.Copyfd(fdo)
	if err != 0 {
		return int32(err)
	}
	if ierr := pcb.Fds.InstallAt(newfd, dup); ierr != 0 {
		return int32(ierr)
	}
	return int32(newfd)
}

// sysPipe implements spec §6 SYS_PIPE: a 4 KiB circular buffer (package
// circbuf, adapted by vfsfd) with one fd installed per end.
func sysPipe(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	r, w, err := vfsfd.NewPipe(proc.Frames, proc.Arena)
	if err != 0 {
		return int32(err)
	}
	ridx, ok := pcb.Fds.Install(&fd.Fd_t{Fops: r, Perms: fd.FD_READ})
	if !ok {
		return int32(-defs.EMFILE)
	}
	widx, ok := pcb.Fds.Install(&fd.Fd_t{Fops: w, Perms: fd.FD_WRITE})
	if !ok {
		pcb.Fds.Remove(ridx)
		return int32(-defs.EMFILE)
	}
	if werr := pcb.AS.Userwriten(mem.Va_t(a.A0), 4, ridx); werr != 0 {
		return int32(werr)
	}
	if werr := pcb.AS.Userwriten(mem.Va_t(a.A0)+4, 4, widx); werr != 0 {
		return int32(werr)
	}
	return 0
}

func sysUnlink(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	return int32(capset.VFSCap.Get().Unlink(resolvePath(pcb, path)))
}

func sysChdir(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	canon := resolvePath(pcb, path)
	vn, err := capset.VFSCap.Get().Open(canon, defs.O_RDONLY, 0)
	if err != 0 {
		return int32(err)
	}
	vn.Close()

	pcb.Lock()
	if pcb.Cwd == nil {
		pcb.Cwd = &fd.Cwd_t{Path: ustr.MkUstrRoot()}
	}
	pcb.Cwd.Path = canon
	pcb.Unlock()
	return 0
}

func sysMkdir(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	return int32(capset.VFSCap.Get().Mkdir(resolvePath(pcb, path), int(a.A1)))
}

func sysRmdir(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	return int32(capset.VFSCap.Get().Rmdir(resolvePath(pcb, path)))
}

// sysStat writes a fixed, kernel-internal field layout (mode, size, ino,
// rdev — 4 bytes each, 16 bytes in all) rather than a binary-compatible Linux struct
// stat: the collaborator contract (spec §6) only promises a stat.Stat_t
// value, not a wire format, and no userland ABI is specified for it.
func sysStat(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	path, perr := pcb.AS.Userstr(mem.Va_t(a.A0), MaxPathLen)
	if perr != 0 {
		return int32(perr)
	}
	st, err := capset.VFSCap.Get().Stat(resolvePath(pcb, path))
	if err != 0 {
		return int32(err)
	}
	uva := mem.Va_t(a.A1)
	pcb.AS.Userwriten(uva+0, 4, int(st.Mode()))
	pcb.AS.Userwriten(uva+4, 4, int(st.Size()))
	pcb.AS.Userwriten(uva+8, 4, int(st.Rino()))
	pcb.AS.Userwriten(uva+12, 4, int(st.Rdev()))
	return 0
}

// sysGetdents proxies straight through the fd's Read (spec §6 "plus
// directory ops" leaves the wire format to the collaborator): the VFS
// contract has no distinct directory-entry encoding, so a directory
// vnode's Read is expected to hand back pre-formatted dirent records.
func sysGetdents(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	return sysRead(pcb, tcb, f, a)
}

func sysGetcwd(pcb *proc.PCB, tcb *proc.TCB, f *irq.Frame, a Args) int32 {
	pcb.Lock()
	cwd := pcb.Cwd
	pcb.Unlock()
	if cwd == nil {
		return int32(-defs.ENOENT)
	}
	size := int(a.A1)
	buf := append(append([]uint8{}, cwd.Path...), 0)
	if len(buf) > size {
		return int32(-defs.ERANGE)
	}
	if err := pcb.AS.K2user(buf, mem.Va_t(a.A0)); err != 0 {
		return int32(err)
	}
	return int32(len(buf))
}
