package cpu

// Context is the sole representation of a suspended task's CPU state: a
// saved kernel stack pointer (spec §3 TCB, §4.7, Design Note "Assembly
// context-switch only-ESP idiom — keep the idiom... confine the unsafe
// assembly to a single function with a typed Context newtype"). Everything
// else a suspended task needs (general registers, segments, EFLAGS) lives
// on the kernel stack Context points into.
type Context uintptr

// Switch saves the current task's stack pointer into *old and loads esp
// from new, then returns — into whatever function the new stack's saved
// return address names. Pre/post-conditions (spec §4.7):
//
//   - called with interrupts disabled, on the outgoing task's kernel stack
//   - before switching, the caller must have set SetKernelStack(tss, ...)
//     for the incoming task, so a later ring3->ring0 trap uses the right
//     stack
//   - the assembly body's only job is: pushfl, pushal, push gs/fs/es/ds,
//     store esp into *old, load esp from new, pop ds/es/fs/gs, popal,
//     popfl, ret (spec §4.7)
//
//go:noescape
func Switch(old *Context, new Context)

// EnterUser builds an IRET-shaped frame on the current (kernel) stack and
// jumps to ring 3: the one-time transition used on a task's first-ever
// dispatch (spec §4.7). eflags should be 0x202 (IF set, bit 1 reserved-on).
//
//go:noescape
func EnterUser(entry uintptr, userStack uintptr, eflags uintptr)

// EnterUserFork is EnterUser's fork-child variant: identical IRET-shaped
// frame, but EAX is zeroed first so the child's first instruction after
// the syscall it forked from sees fork()'s child-side return value (spec
// §8 testable property 8: "child's EAX == 0"). entry/userStack are the
// parent's trapped EIP/ESP, not an ELF entry point — the child resumes
// exactly where the parent was interrupted, not at program start.
//
//go:noescape
func EnterUserFork(entry uintptr, userStack uintptr, eflags uintptr)
