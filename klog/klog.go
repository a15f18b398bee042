// Package klog is Coal OS's structured kernel logger: boot trace, syscall
// trace, and the sole panic/recover boundary for assertion failures (spec
// §2 component table, §7 "klog is the sole panic/recover boundary"). It
// writes to the COM1 serial port from the first boot line — before any
// console capability exists — and mirrors to the console TTY once
// capset.TTYCap is set.
package klog

import (
	"coalos/capset"
	"fmt"
)

// Level orders log lines the way the teacher's own ad hoc fmt.Printf
// banners implicitly did (boot trace vs. warning vs. fatal), made explicit
// here instead of left as bare Printf calls scattered through boot.
type Level int

const (
	LevelTrace Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

// Min is the lowest level actually emitted; boot.Sequence may raise it
// once the kernel is past its noisiest bring-up phase.
var Min = LevelTrace

// writeHook is the actual log sink; a var (not a direct call) so tests can
// substitute a recording stub instead of issuing real port I/O, the same
// pattern irq.panicUnhandled uses for its own default.
var writeHook = func(line string) {
	serialWriteString(line)
	if capset.TTYCap.IsSet() {
		capset.TTYCap.Get().WriteBytes([]uint8(line))
	}
}

func logf(lvl Level, format string, args ...any) {
	if lvl < Min {
		return
	}
	writeHook(fmt.Sprintf("[%s] %s\n", lvl, fmt.Sprintf(format, args...)))
}

func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }
