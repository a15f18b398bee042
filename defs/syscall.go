package defs

// Syscall numbers, unified into a single table per Design Note "two syscall
// tables (Coal-native and Linux) ... unify to one dispatcher keyed on a
// syscall-number enum". The numbering is Linux-32-compatible throughout
// (spec §6); there is no separate "Coal-native" range.
type Syscall int

const (
	SYS_EXIT    Syscall = 1
	SYS_FORK    Syscall = 2
	SYS_READ    Syscall = 3
	SYS_WRITE   Syscall = 4
	SYS_OPEN    Syscall = 5
	SYS_CLOSE   Syscall = 6
	SYS_WAITPID Syscall = 7
	SYS_UNLINK  Syscall = 10
	SYS_EXECVE  Syscall = 11
	SYS_CHDIR   Syscall = 12
	SYS_LSEEK   Syscall = 19
	SYS_GETPID  Syscall = 20
	SYS_KILL    Syscall = 37
	SYS_MKDIR   Syscall = 39
	SYS_RMDIR   Syscall = 40
	SYS_PIPE    Syscall = 42
	SYS_BRK     Syscall = 45
	SYS_SIGNAL  Syscall = 48
	SYS_SIGRETURN Syscall = 119
	SYS_SETPGID Syscall = 57
	SYS_DUP2    Syscall = 63
	SYS_GETPPID Syscall = 64
	SYS_SETSID  Syscall = 66
	SYS_MMAP    Syscall = 90
	SYS_STAT    Syscall = 106
	SYS_GETDENTS Syscall = 141
	SYS_GETCWD  Syscall = 183
)

// open(2) flags, POSIX-numbered per spec §6.
const (
	O_RDONLY = 0x0
	O_WRONLY = 0x1
	O_RDWR   = 0x2
	O_CREAT  = 0x100
	O_EXCL   = 0x200
	O_TRUNC  = 0x800
	O_APPEND = 0x1000
)

// lseek(2) whence values.
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// mmap(2) protection and flag bits, enough of the Linux surface for the
// anonymous-mapping subset Coal OS implements (spec §4.5 Non-goal: no
// file-backed demand paging).
const (
	PROT_NONE  = 0x0
	PROT_READ  = 0x1
	PROT_WRITE = 0x2
	PROT_EXEC  = 0x4

	MAP_SHARED    = 0x1
	MAP_PRIVATE   = 0x2
	MAP_FIXED     = 0x10
	MAP_ANONYMOUS = 0x20
)
