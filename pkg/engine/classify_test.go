package engine

import (
	"testing"

	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	voltageSensor    = sensor.Definition{Name: "volt", Unit: "V", Model: sensor.Voltage{}}
	resistanceSensor = sensor.Definition{Name: "ohm", Unit: "ohm", Model: sensor.Resistance{}}
	ntcSensor        = sensor.Definition{
		Name:  "ntc10k",
		Unit:  "celsius",
		Model: sensor.NTC{RNominal: 10000, A: 3.3538646e-3, B: 2.56985e-4, C: 2.620131e-6, D: 6.383091e-8},
	}
	thermocouple = sensor.Definition{Name: "k", Unit: "celsius", Model: sensor.Unsupported{Type: "tc"}}
)

func repeat(v uint16, n int) []uint16 {
	s := make([]uint16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestClassify_NoSensor(t *testing.T) {
	r := Classify(Input{
		Module:  1,
		Channel: 3,
		Samples: []uint16{10, 4000, 2050, 2040, 2060},
		Device:  config.DefaultDevice(),
	})

	assert.Equal(t, StateErrNoSensor, r.State)
	assert.Equal(t, 1, r.Module)
	assert.Equal(t, 3, r.Channel)
	assert.Nil(t, r.Value)
	assert.Nil(t, r.Unit)
}

func TestClassify_Voltage(t *testing.T) {
	def := voltageSensor
	r := Classify(Input{Module: 1, Channel: 0, Sensor: &def, Samples: repeat(2048, 100), Device: config.DefaultDevice()})

	require.Equal(t, StateOK, r.State)
	require.NotNil(t, r.Value)
	require.NotNil(t, r.Unit)
	assert.InDelta(t, 1.65, *r.Value, 1e-9)
	assert.Equal(t, "V", *r.Unit)
}

func TestClassify_CalculationError(t *testing.T) {
	def := resistanceSensor
	r := Classify(Input{Channel: 2, Sensor: &def, Samples: repeat(4095, 10), Device: config.DefaultDevice()})

	assert.Equal(t, StateErr, r.State)
	assert.Nil(t, r.Value)
	assert.Nil(t, r.Unit)
}

func TestClassifyValue_Borders(t *testing.T) {
	dev := config.DefaultDevice()
	adcMax := float64(dev.ADCMaxValue())

	tests := []struct {
		name  string
		value float64
		want  State
	}{
		{"zero", 0, StateErrLo},
		{"below border", dev.Border - 1, StateErrLo},
		{"at border", dev.Border, StateErrLo},
		{"above border", dev.Border + 1, StateOK},
		{"mid scale", 2048, StateOK},
		{"below upper border", adcMax - dev.Border - 1, StateOK},
		{"at upper border", adcMax - dev.Border, StateOK},
		{"above upper border", adcMax - dev.Border + 0.5, StateErrHi},
		{"full scale", adcMax, StateErrHi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ClassifyValue(1, 0, &ntcSensor, tt.value, dev)
			assert.Equal(t, tt.want, r.State)
		})
	}
}

func TestClassifyValue_BordersOnlyForThermalSensors(t *testing.T) {
	dev := config.DefaultDevice()

	r := ClassifyValue(1, 0, &voltageSensor, 0, dev)
	require.Equal(t, StateOK, r.State)
	assert.Equal(t, 0.0, *r.Value)

	r = ClassifyValue(1, 0, &voltageSensor, float64(dev.ADCMaxValue()), dev)
	assert.Equal(t, StateOK, r.State)
}

func TestClassifyValue_Unsupported(t *testing.T) {
	dev := config.DefaultDevice()

	// Support is checked before the rails
	for _, v := range []float64{0, dev.Border, 2048, float64(dev.ADCMaxValue())} {
		r := ClassifyValue(1, 4, &thermocouple, v, dev)
		assert.Equal(t, StateErrNoSupport, r.State)
		assert.Nil(t, r.Value)
	}

	missing := sensor.Definition{Name: "empty", Unit: "x"}
	r := ClassifyValue(1, 4, &missing, 2048, dev)
	assert.Equal(t, StateErrNoSupport, r.State)
}

func TestClassifyValue_UsesChannelReference(t *testing.T) {
	dev := config.DefaultDevice()
	dev.RMeasurement[5] = 1000

	r := ClassifyValue(1, 5, &resistanceSensor, 2047, dev)
	require.Equal(t, StateOK, r.State)
	assert.InDelta(t, 1000.0, *r.Value, 1e-9)
}

func TestClassify_NeverNone(t *testing.T) {
	dev := config.DefaultDevice()
	defs := []*sensor.Definition{nil, &voltageSensor, &resistanceSensor, &ntcSensor, &thermocouple}

	for _, def := range defs {
		for v := 0; v < 4096; v += 13 {
			r := ClassifyValue(1, 0, def, float64(v), dev)
			assert.NotEqual(t, StateNone, r.State)
			if r.State == StateOK {
				assert.NotNil(t, r.Value)
				assert.NotNil(t, r.Unit)
			} else {
				assert.Nil(t, r.Value)
				assert.Nil(t, r.Unit)
			}
		}
	}
}

func TestState_Text(t *testing.T) {
	for _, s := range States() {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back State
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	assert.Equal(t, "ERR_NOSUPPT", StateErrNoSupport.String())
	assert.Equal(t, "State(42)", State(42).String())

	var s State
	assert.Error(t, s.UnmarshalText([]byte("BOGUS")))
	_, err := State(0).MarshalText()
	assert.Error(t, err)
}
