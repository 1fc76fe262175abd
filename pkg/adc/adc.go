package adc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itohio/thermod/pkg/config"
)

const (
	// Channels is the number of single-ended inputs of the MCP3208.
	Channels = config.ChannelCount
	// ValueMask keeps the 12 data bits of a reply.
	ValueMask = 0x0fff
)

var (
	ErrInvalidChannel   = errors.New("invalid channel")
	ErrHardwareIO       = errors.New("hardware i/o")
	ErrUnknownTransport = errors.New("unknown transport mode")
	ErrClosed           = errors.New("transport closed")
)

// Open initializes the transport selected by cfg.TransportMode. The choice is
// fixed for the lifetime of the returned Transport.
func Open(cfg config.Device) (Transport, error) {
	switch strings.ToLower(cfg.TransportMode) {
	case config.TransportSPIDev, "native":
		return OpenNative(cfg)
	case config.TransportBitBang, "bitbang":
		return OpenBitBang(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.TransportMode)
	}
}

func checkChannel(channel int) error {
	if channel < 0 || channel >= Channels {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return nil
}

// NativeCommand builds the request for the kernel SPI port:
// B0 start bit, single-ended, channel msb; B1 two channel lsb; B2 filler.
func NativeCommand(channel int) [3]byte {
	return [3]byte{
		0x06 | byte((channel&0x04)>>2),
		byte((channel & 0x03) << 6),
		0x00,
	}
}

// BitBangCommand builds the request clocked out over GPIO: the start,
// single-ended and channel bits (0x18 + channel) shifted into a big-endian
// 16-bit word followed by a filler byte.
func BitBangCommand(channel int) [3]byte {
	word := uint16(0x18+channel) << 6
	return [3]byte{byte(word >> 8), byte(word), 0x00}
}

// BytesToInt interprets b as a big-endian unsigned integer.
func BytesToInt(b []byte) uint32 {
	var result uint32
	for _, v := range b {
		result = result<<8 | uint32(v)
	}
	return result
}
