package irq

// TickFn is invoked on every IRQTimer interrupt once InstallTimer has been
// called; boot.Sequence wires this to the scheduler's Tick (spec §4.7/§4.9). Left
// nil by default so package irq has no compile-time dependency on sched.
var TickFn func()

// InstallTimer registers the timer IRQ's handler: call TickFn if set, then
// send EOI. Timer handlers, per spec §4.9, "issue their own EOI" rather
// than relying on the default handler's fallback EOI.
func InstallTimer() {
	Register(PICMasterBase+IRQTimer, func(f *Frame) {
		if TickFn != nil {
			TickFn()
		}
		EOI(IRQTimer)
	})
}
