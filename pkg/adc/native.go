package adc

import (
	"fmt"
	"log"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/itohio/thermod/pkg/config"
)

// exchanger is the part of spi.Conn the driver needs.
type exchanger interface {
	Tx(w, r []byte) error
}

// Native reads the ADC through a kernel SPI port.
type Native struct {
	mu     sync.Mutex
	port   spi.PortCloser
	conn   exchanger
	closed bool
}

// OpenNative opens cfg.SPIPort (the first registered port when empty) in
// mode 0 at cfg.SPISpeedHz.
func OpenNative(cfg config.Device) (*Native, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize host drivers: %w", ErrHardwareIO, err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open spi port %q: %w", ErrHardwareIO, cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.Frequency(cfg.SPISpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("%w: failed to configure spi port %q: %w", ErrHardwareIO, cfg.SPIPort, err),
			port.Close(),
		)
	}

	log.Printf("ADC initialized in spidev mode on %s", port)

	return &Native{port: port, conn: conn}, nil
}

// newNative wraps an already configured connection.
func newNative(conn exchanger) *Native {
	return &Native{conn: conn}
}

// ReadChannel implements Transport.
func (n *Native) ReadChannel(channel int) (uint16, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return 0, ErrClosed
	}

	cmd := NativeCommand(channel)
	var reply [3]byte
	if err := n.conn.Tx(cmd[:], reply[:]); err != nil {
		return 0, fmt.Errorf("%w: spi exchange on channel %d: %w", ErrHardwareIO, channel, err)
	}

	return uint16(BytesToInt(reply[:]) & ValueMask), nil
}

// Close releases the SPI port.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if n.port == nil {
		return nil
	}
	return n.port.Close()
}
