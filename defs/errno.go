package defs

// Err_t is the kernel-internal result type: zero on success, a negative
// Linux errno value on failure. Syscall handlers return Err_t throughout;
// the dispatcher (package sysc) is the only place it is ever widened into a
// signed EAX value, per Design Note "errno-style mixed integer returns ...
// use a sum type internally".
type Err_t int

// errno values mirrored from Linux so that userland's libc sees the numbers
// it expects (spec §7).
const (
	EPERM    Err_t = 1
	ENOENT   Err_t = 2
	ESRCH    Err_t = 3
	EIO      Err_t = 5
	EBADF    Err_t = 9
	EAGAIN   Err_t = 11
	ENOMEM   Err_t = 12
	EACCES   Err_t = 13
	EFAULT   Err_t = 14
	EEXIST   Err_t = 17
	ENOTDIR  Err_t = 20
	EINVAL   Err_t = 22
	ENOSPC   Err_t = 28
	ESPIPE   Err_t = 29
	ERANGE   Err_t = 34
	ENOSYS   Err_t = 38
	ENAMETOOLONG Err_t = 36
	EPIPE    Err_t = 32
	EBUSY    Err_t = 16
	ECHILD   Err_t = 10
	EMFILE   Err_t = 24
)

// Kind groups errno values into the kind taxonomy named by spec §7. It
// exists purely for documentation/logging; handlers still return the
// concrete Err_t.
type Kind int

const (
	KindInvalid Kind = iota
	KindNotFound
	KindPerm
	KindNoMem
	KindBadFd
	KindFault
	KindExists
	KindBusy
	KindNoSpc
	KindRange
	KindAgain
	KindPipe
	KindChild
	KindNoSys
	KindIo
)

// KindOf classifies an Err_t into its spec §7 Kind, for logging only.
func KindOf(e Err_t) Kind {
	switch e {
	case -EINVAL:
		return KindInvalid
	case -ENOENT, -ESRCH:
		return KindNotFound
	case -EPERM, -EACCES:
		return KindPerm
	case -ENOMEM:
		return KindNoMem
	case -EBADF, -EMFILE:
		return KindBadFd
	case -EFAULT:
		return KindFault
	case -EEXIST:
		return KindExists
	case -EBUSY:
		return KindBusy
	case -ENOSPC:
		return KindNoSpc
	case -ERANGE, -ENAMETOOLONG:
		return KindRange
	case -EAGAIN:
		return KindAgain
	case -EPIPE:
		return KindPipe
	case -ECHILD:
		return KindChild
	case -ENOSYS:
		return KindNoSys
	default:
		return KindIo
	}
}

// Pid_t identifies a process. Pid 0 is the idle task; pid 1 is init.
type Pid_t int

// Tid_t identifies a schedulable thread. Coal OS runs exactly one thread
// per process, so Tid_t and Pid_t share the same numbering space, but the
// scheduler still keys its structures on Tid_t per spec §3's TCB/PCB split.
type Tid_t int

const (
	PidIdle Pid_t = 0
	PidInit Pid_t = 1
)
