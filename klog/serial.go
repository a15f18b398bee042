package klog

import "coalos/cpu"

// COM1 registers, standard 16550 layout. Used as the kernel log sink
// before (and alongside) a console TTY capability exists, since klog must
// work from the very first boot line (spec §6 "boot trace") through a
// panic that may itself be caused by a broken console driver.
const (
	com1Port       = 0x3f8
	com1LineStatus = com1Port + 5
	lsrTHRE        = 1 << 5 // transmit holding register empty
)

var serialReady bool

// InitSerial programs COM1 for 38400 8N1 with FIFOs enabled. Grounded on
// the textbook 16550 bring-up sequence; Coal OS never reads from the
// port, only writes, so the receive side is left at its power-on default.
func InitSerial() {
	cpu.Outb(com1Port+1, 0x00) // disable interrupts
	cpu.Outb(com1Port+3, 0x80) // enable DLAB
	cpu.Outb(com1Port+0, 0x03) // divisor lo: 38400 baud
	cpu.Outb(com1Port+1, 0x00) // divisor hi
	cpu.Outb(com1Port+3, 0x03) // 8 bits, no parity, one stop bit
	cpu.Outb(com1Port+2, 0xc7) // enable FIFO, clear, 14-byte threshold
	cpu.Outb(com1Port+4, 0x0b) // IRQs enabled, RTS/DSR set
	serialReady = true
}

func serialWriteByte(b byte) {
	if !serialReady {
		return
	}
	for cpu.Inb(com1LineStatus)&lsrTHRE == 0 {
	}
	cpu.Outb(com1Port, b)
}

func serialWriteString(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			serialWriteByte('\r')
		}
		serialWriteByte(s[i])
	}
}
