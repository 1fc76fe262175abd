package engine

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/sensor"
)

// NoSensor is the channel assignment for an unconnected input. An empty
// sensor name means the same.
const NoSensor = "none"

// ChannelConfig assigns a catalog sensor to one channel of one module.
type ChannelConfig struct {
	ModuleID   int    `json:"module_id"`
	ChannelID  int    `json:"channel_id"`
	SensorType string `json:"sensor_type"` // Catalog sensor name
}

// assignment is the resolved sensor of a channel.
type assignment struct {
	resolved bool
	sensor   *sensor.Definition // nil for NoSensor
}

// Surface holds the mutable configuration of one module. Device config,
// catalog and live assignments each have their own lock; the catalog lock
// is always taken before the assignment lock.
type Surface struct {
	module    int
	readiness *Readiness

	deviceMu sync.RWMutex
	device   config.Device

	catalogMu sync.Mutex
	catalog   *sensor.Catalog
	requested [config.ChannelCount]string
	received  [config.ChannelCount]bool

	assignMu sync.RWMutex
	assigned [config.ChannelCount]assignment
}

// NewSurface creates the configuration of module starting from dev.
func NewSurface(module int, dev config.Device) *Surface {
	return &Surface{
		module:    module,
		readiness: NewReadiness(),
		device:    dev,
		catalog:   sensor.NewCatalog(),
	}
}

// Module returns the identifier of the module this surface configures.
func (s *Surface) Module() int {
	return s.module
}

// Readiness returns the readiness tracker of this surface.
func (s *Surface) Readiness() *Readiness {
	return s.readiness
}

// Device returns a copy of the current device configuration.
func (s *Surface) Device() config.Device {
	s.deviceMu.RLock()
	defer s.deviceMu.RUnlock()
	return s.device
}

// Assignments returns the resolved sensor of every channel; nil entries
// have no sensor.
func (s *Surface) Assignments() [config.ChannelCount]*sensor.Definition {
	s.assignMu.RLock()
	defer s.assignMu.RUnlock()

	var result [config.ChannelCount]*sensor.Definition
	for ch, a := range s.assigned {
		result[ch] = a.sensor
	}
	return result
}

// UpdateDevice merges a JSON device configuration into the current one.
func (s *Surface) UpdateDevice(patch []byte) error {
	s.deviceMu.Lock()
	next := s.device
	err := next.Merge(patch)
	if err == nil {
		s.device = next
	}
	s.deviceMu.Unlock()

	if err != nil {
		return err
	}

	log.Printf("Device config received")
	s.readiness.SetDevice()
	return nil
}

// UpdateSensors merges definitions into the catalog and re-resolves every
// channel that already has an assignment.
func (s *Surface) UpdateSensors(c *sensor.Catalog) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	s.catalog.Merge(c)
	log.Printf("Sensor config received (%d definitions, %d total)", c.Len(), s.catalog.Len())

	if s.readiness.SetSensors() {
		log.Printf("Sensor config received for the first time")
	}

	for ch := range s.requested {
		if s.received[ch] {
			s.resolveLocked(ch)
		}
	}
	s.checkChannelsLocked()
}

// UpdateChannel applies a channel assignment. Messages addressed to other
// modules are ignored; the first result reports whether msg was applied.
func (s *Surface) UpdateChannel(msg ChannelConfig) (bool, error) {
	if msg.ModuleID != s.module {
		return false, nil
	}
	if msg.ChannelID < 0 || msg.ChannelID >= config.ChannelCount {
		return false, fmt.Errorf("channel %d out of range", msg.ChannelID)
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	s.requested[msg.ChannelID] = msg.SensorType
	s.received[msg.ChannelID] = true
	s.resolveLocked(msg.ChannelID)
	s.checkChannelsLocked()

	return true, nil
}

// resolveLocked looks up the requested sensor of ch. catalogMu must be held.
func (s *Surface) resolveLocked(ch int) {
	name := s.requested[ch]

	var a assignment
	switch {
	case name == "" || strings.EqualFold(name, NoSensor):
		a = assignment{resolved: true}
	default:
		if def, ok := s.catalog.Lookup(name); ok {
			a = assignment{resolved: true, sensor: &def}
		} else {
			log.Printf("Sensor %q for channel %d is not in the catalog", name, ch)
		}
	}

	s.assignMu.Lock()
	s.assigned[ch] = a
	s.assignMu.Unlock()
}

// checkChannelsLocked sets the channels flag once every slot is resolved.
// catalogMu must be held.
func (s *Surface) checkChannelsLocked() {
	s.assignMu.RLock()
	all := true
	for _, a := range s.assigned {
		if !a.resolved {
			all = false
			break
		}
	}
	s.assignMu.RUnlock()

	if all && s.readiness.SetChannels() {
		log.Printf("Received all required channel configs")
	}
}
