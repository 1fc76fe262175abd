package adc

import (
	"errors"
	"fmt"
	"sync"
)

// Mock replays scripted readings for testing and development.
type Mock struct {
	mu       sync.Mutex
	readings [Channels][]uint16
	pos      [Channels]int
	reads    int
	failAt   int // 1-based read number that fails, 0 = never
	err      error
	closed   bool
}

// NewMock creates a mock whose channels all read zero.
func NewMock() *Mock {
	return &Mock{}
}

// SetReadings scripts the values returned for channel. The sequence repeats
// once exhausted.
func (m *Mock) SetReadings(channel int, values ...uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readings[channel] = append([]uint16(nil), values...)
	m.pos[channel] = 0
}

// SetAll scripts the same sequence on every channel.
func (m *Mock) SetAll(values ...uint16) {
	for ch := 0; ch < Channels; ch++ {
		m.SetReadings(ch, values...)
	}
}

// FailAt makes the n-th read (counted from now, 1-based) return err wrapped
// in ErrHardwareIO. n <= 0 disables the fault.
func (m *Mock) FailAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		m.failAt = 0
		m.err = nil
		return
	}
	m.failAt = m.reads + n
	m.err = err
}

// Reads returns the number of ReadChannel calls so far.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// ReadChannel implements Transport.
func (m *Mock) ReadChannel(channel int) (uint16, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	m.reads++
	if m.failAt != 0 && m.reads == m.failAt {
		err := m.err
		if err == nil {
			err = errors.New("injected fault")
		}
		return 0, fmt.Errorf("%w: channel %d: %w", ErrHardwareIO, channel, err)
	}

	values := m.readings[channel]
	if len(values) == 0 {
		return 0, nil
	}
	v := values[m.pos[channel]%len(values)]
	m.pos[channel]++

	return v & ValueMask, nil
}

// Close implements Transport.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
