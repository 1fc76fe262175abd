package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChannelCount is the number of analog inputs on one module.
const ChannelCount = 8

// Transport modes understood by the ADC driver.
const (
	TransportSPIDev  = "spidev"  // Kernel SPI port
	TransportBitBang = "pigpiod" // SPI framing bit-banged over GPIO lines
)

// HardwareV1 is the legacy board revision whose divider is not inverted.
const HardwareV1 = "v1"

// Device holds the ADC wiring and device-wide tunables. The JSON names match
// the payload of the device configuration topic.
type Device struct {
	SCLK            int                   `yaml:"spi_sclk" json:"spi_SCLK"`
	MOSI            int                   `yaml:"spi_mosi" json:"spi_MOSI"`
	MISO            int                   `yaml:"spi_miso" json:"spi_MISO"`
	CS              int                   `yaml:"spi_cs" json:"spi_CS"`
	SPIPort         string                `yaml:"spi_port" json:"spi_port"`
	SPISpeedHz      int64                 `yaml:"spi_speed_hz" json:"spi_speed_hz"`
	TransportMode   string                `yaml:"transport_mode" json:"spi_mode"`
	HardwareVersion string                `yaml:"hardware_version" json:"hardware_version"`
	RefVoltage      float64               `yaml:"ref_voltage" json:"ref_voltage"`
	ADCSteps        int                   `yaml:"adc_steps" json:"adc_steps"`
	SampleCount     int                   `yaml:"sample_count" json:"sample_count"`
	RMeasurement    [ChannelCount]float64 `yaml:"r_measurement" json:"r_measurement"`
	Border          float64               `yaml:"border" json:"border"`
	Interval        float64               `yaml:"interval" json:"interval"` // Seconds between cycle starts
}

// DefaultDevice returns the wiring of the reference board.
func DefaultDevice() Device {
	return Device{
		SCLK:            18,
		MOSI:            24,
		MISO:            23,
		CS:              25,
		SPIPort:         "",
		SPISpeedHz:      250000,
		TransportMode:   TransportSPIDev,
		HardwareVersion: "v2",
		RefVoltage:      3.3,
		ADCSteps:        4096,
		SampleCount:     100,
		RMeasurement: [ChannelCount]float64{
			47000, 47000, 47000, 47000,
			47000, 47000, 47000, 47000,
		},
		Border:   15,
		Interval: 3,
	}
}

// ADCMaxValue is the largest raw reading the converter can return.
func (d Device) ADCMaxValue() int {
	return d.ADCSteps - 1
}

// IntervalDuration converts Interval to a time.Duration.
func (d Device) IntervalDuration() time.Duration {
	return time.Duration(d.Interval * float64(time.Second))
}

// Merge overwrites the top-level keys present in patch (a JSON object) and
// leaves every other field untouched. A key replaces the whole field, so a
// partial r_measurement list zeroes the channels it omits.
func (d *Device) Merge(patch []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return fmt.Errorf("failed to parse device config: %w", err)
	}

	current, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal device config: %w", err)
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(current, &base); err != nil {
		return fmt.Errorf("failed to parse device config: %w", err)
	}

	for key, value := range fields {
		base[key] = value
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("failed to marshal device config: %w", err)
	}

	var next Device
	if err := json.Unmarshal(merged, &next); err != nil {
		return fmt.Errorf("invalid device config: %w", err)
	}

	*d = next
	return nil
}

// ensureDefaults fills the fields that would stall the driver or the
// scheduler when left at zero.
func (d *Device) ensureDefaults() {
	def := DefaultDevice()

	if d.TransportMode == "" {
		d.TransportMode = def.TransportMode
	}
	if d.HardwareVersion == "" {
		d.HardwareVersion = def.HardwareVersion
	}
	if d.RefVoltage == 0 {
		d.RefVoltage = def.RefVoltage
	}
	if d.ADCSteps == 0 {
		d.ADCSteps = def.ADCSteps
	}
	if d.SampleCount == 0 {
		d.SampleCount = def.SampleCount
	}
	if d.SPISpeedHz == 0 {
		d.SPISpeedHz = def.SPISpeedHz
	}
	if d.Interval == 0 {
		d.Interval = def.Interval
	}
}
