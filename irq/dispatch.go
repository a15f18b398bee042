package irq

import "sync"

// Handler processes one vector's trap; returning lets the stub IRET back
// (spec §4.9: "dispatches to a registered C handler or default_isr_handler").
type Handler func(f *Frame)

var (
	mu       sync.Mutex
	handlers [NumVectors]Handler
)

// Register installs h for vector v, overwriting any previous handler.
func Register(v int, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[v] = h
}

// Dispatch is called by every assembly ISR stub with the just-built Frame.
// It is the Go analogue of isr_common_handler: look up a registered
// handler for f.Vector and run it, or fall back to defaultHandler.
func Dispatch(f *Frame) {
	mu.Lock()
	h := handlers[f.Vector]
	mu.Unlock()

	if h != nil {
		h(f)
		return
	}
	defaultHandler(f)
}

// defaultHandler logs the frame and halts, first sending EOI if the
// vector is an unhandled hardware IRQ so the PIC isn't left wedged (spec
// §4.9).
func defaultHandler(f *Frame) {
	if f.Vector >= PICMasterBase && f.Vector < PICMasterBase+16 {
		EOI(int(f.Vector) - PICMasterBase)
	}
	panicUnhandled(f)
}

// panicUnhandled is overridden by klog in production; tests substitute a
// recording stub so Dispatch's fallback path is exercisable without a
// real panic banner.
var panicUnhandled = func(f *Frame) {
	panic("unhandled trap")
}

// SetUnhandledHook lets klog install its panic-banner rendering as the
// fallback for unregistered vectors.
func SetUnhandledHook(fn func(f *Frame)) {
	panicUnhandled = fn
}
