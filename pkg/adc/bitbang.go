package adc

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/itohio/thermod/pkg/config"
)

// line is a single GPIO line. rpio.Pin satisfies it.
type line interface {
	High()
	Low()
	Read() rpio.State
}

// BitBang clocks SPI frames over four GPIO lines.
type BitBang struct {
	mu     sync.Mutex
	cs     line
	clk    line
	mosi   line
	miso   line
	half   time.Duration // Half clock period
	closer func() error
	closed bool
}

// OpenBitBang maps the GPIO registers and configures the CS, SCLK, MOSI and
// MISO lines from cfg.
func OpenBitBang(cfg config.Device) (*BitBang, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("%w: failed to map gpio: %w", ErrHardwareIO, err)
	}

	cs := rpio.Pin(cfg.CS)
	clk := rpio.Pin(cfg.SCLK)
	mosi := rpio.Pin(cfg.MOSI)
	miso := rpio.Pin(cfg.MISO)

	cs.Output()
	cs.High()
	clk.Output()
	clk.Low()
	mosi.Output()
	miso.Input()

	log.Printf("ADC initialized in bit-bang mode (cs=%d sclk=%d mosi=%d miso=%d)",
		cfg.CS, cfg.SCLK, cfg.MOSI, cfg.MISO)

	b := newBitBang(cs, clk, mosi, miso, halfPeriod(cfg.SPISpeedHz))
	b.closer = rpio.Close
	return b, nil
}

func newBitBang(cs, clk, mosi, miso line, half time.Duration) *BitBang {
	return &BitBang{
		cs:   cs,
		clk:  clk,
		mosi: mosi,
		miso: miso,
		half: half,
	}
}

func halfPeriod(hz int64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(2*hz)
}

// ReadChannel implements Transport.
func (b *BitBang) ReadChannel(channel int) (uint16, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	cmd := BitBangCommand(channel)
	reply := b.exchange(cmd[:])

	// The first reply byte carries no data bits
	return uint16(BytesToInt(reply[1:]) & ValueMask), nil
}

// exchange shifts w out MSB first in SPI mode 0 and returns the bits sampled
// on MISO at every rising clock edge.
func (b *BitBang) exchange(w []byte) []byte {
	r := make([]byte, len(w))

	b.cs.Low()
	defer b.cs.High()

	for i, out := range w {
		var in byte
		for bit := 7; bit >= 0; bit-- {
			if out&(1<<bit) != 0 {
				b.mosi.High()
			} else {
				b.mosi.Low()
			}
			b.wait()
			b.clk.High()
			if b.miso.Read() == rpio.High {
				in |= 1 << bit
			}
			b.wait()
			b.clk.Low()
		}
		r[i] = in
	}

	return r
}

// wait busy-waits for half a clock period.
func (b *BitBang) wait() {
	if b.half <= 0 {
		return
	}
	deadline := time.Now().Add(b.half)
	for time.Now().Before(deadline) {
	}
}

// Close unmaps the GPIO registers.
func (b *BitBang) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.closer == nil {
		return nil
	}
	if err := b.closer(); err != nil {
		return fmt.Errorf("failed to unmap gpio: %w", err)
	}
	return nil
}
