package engine

import (
	"sync"
)

// Readiness tracks the three configuration parts that must arrive before
// sampling may start. Flags only ever go from false to true.
type Readiness struct {
	mu       sync.Mutex
	sensors  bool
	channels bool
	device   bool
	done     chan struct{}
}

// NewReadiness creates a readiness tracker with nothing received.
func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// SetSensors marks the sensor catalog as received. It reports whether this
// call changed the flag.
func (r *Readiness) SetSensors() bool {
	return r.set(&r.sensors)
}

// SetChannels marks every channel as assigned.
func (r *Readiness) SetChannels() bool {
	return r.set(&r.channels)
}

// SetDevice marks the device configuration as received.
func (r *Readiness) SetDevice() bool {
	return r.set(&r.device)
}

func (r *Readiness) set(flag *bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if *flag {
		return false
	}
	*flag = true

	if r.sensors && r.channels && r.device {
		close(r.done)
	}
	return true
}

// Sensors reports whether the catalog has been received.
func (r *Readiness) Sensors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sensors
}

// Channels reports whether all channels have been assigned.
func (r *Readiness) Channels() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels
}

// Device reports whether the device configuration has been received.
func (r *Readiness) Device() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device
}

// Ready reports whether all three parts have arrived.
func (r *Readiness) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Done is closed once Ready becomes true.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}
