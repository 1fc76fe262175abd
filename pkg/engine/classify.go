package engine

import (
	"errors"
	"log"

	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/sample"
	"github.com/itohio/thermod/pkg/sensor"
)

// Input is everything needed to classify one channel of one cycle.
type Input struct {
	Module  int
	Channel int
	Sensor  *sensor.Definition // nil when no sensor is connected
	Samples []uint16
	Device  config.Device
}

// Classify conditions the channel's samples and classifies the result.
// Channels without a sensor are not conditioned.
func Classify(in Input) ChannelResult {
	if in.Sensor == nil || len(in.Samples) == 0 {
		return ClassifyValue(in.Module, in.Channel, nil, 0, in.Device)
	}

	return ClassifyValue(in.Module, in.Channel, in.Sensor, sample.Condition(in.Samples), in.Device)
}

// ClassifyValue classifies a conditioned reading. The checks run in order:
// sensor presence, formula support, rail proximity (thermistors and RTDs
// only), then the conversion itself. The low border is inclusive, the high
// one is not.
func ClassifyValue(module, channel int, def *sensor.Definition, conditioned float64, dev config.Device) ChannelResult {
	result := ChannelResult{
		Module:  module,
		Channel: channel,
		State:   StateNone,
	}

	if def == nil {
		result.State = StateErrNoSensor
		return result
	}

	switch {
	case !def.Supported():
		result.State = StateErrNoSupport
	case def.BoundaryChecked() && conditioned <= dev.Border:
		result.State = StateErrLo
	case def.BoundaryChecked() && conditioned > float64(dev.ADCMaxValue())-dev.Border:
		result.State = StateErrHi
	default:
		value, err := sensor.Convert(*def, conditioned, dev.RMeasurement[channel], dev)
		switch {
		case errors.Is(err, sensor.ErrUnsupportedType):
			result.State = StateErrNoSupport
			log.Printf("Sensor type %s is unknown for channel: %d", def.Kind(), channel)
		case err != nil:
			result.State = StateErr
			log.Printf("Calculating result failed for channel %d: %v", channel, err)
		default:
			unit := def.Unit
			result.State = StateOK
			result.Value = &value
			result.Unit = &unit
		}
	}

	return result
}
