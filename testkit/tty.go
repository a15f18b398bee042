package testkit

import (
	"sync"

	"coalos/defs"
)

// FakeTTY is an in-memory console: WriteBytes appends to an output log a
// test can inspect, ReadLine drains a caller-seeded input queue one line
// at a time (spec §1 "a byte-oriented tty").
type FakeTTY struct {
	mu     sync.Mutex
	Output []byte
	input  [][]byte
}

func NewFakeTTY() *FakeTTY { return &FakeTTY{} }

// Feed queues line as the next ReadLine result.
func (t *FakeTTY) Feed(line []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input = append(t.input, append([]byte(nil), line...))
}

func (t *FakeTTY) ReadLine(buf []uint8) (int, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.input) == 0 {
		return 0, 0
	}
	line := t.input[0]
	t.input = t.input[1:]
	n := copy(buf, line)
	return n, 0
}

func (t *FakeTTY) WriteBytes(buf []uint8) (int, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Output = append(t.Output, buf...)
	return len(buf), 0
}
