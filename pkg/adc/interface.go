package adc

// Transport reads raw conversions from the ADC (real or mocked).
type Transport interface {
	// ReadChannel performs one single-ended conversion and returns the 12-bit result.
	ReadChannel(channel int) (uint16, error)
	Close() error
}

// Ensure Native implements Transport.
var _ Transport = (*Native)(nil)

// Ensure BitBang implements Transport.
var _ Transport = (*BitBang)(nil)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)
