package engine

import (
	"sync"
	"testing"

	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignAll(t *testing.T, s *Surface, names ...string) {
	t.Helper()
	for ch := 0; ch < config.ChannelCount; ch++ {
		name := NoSensor
		if ch < len(names) {
			name = names[ch]
		}
		applied, err := s.UpdateChannel(ChannelConfig{ModuleID: s.Module(), ChannelID: ch, SensorType: name})
		require.NoError(t, err)
		require.True(t, applied)
	}
}

func TestReadiness_AnyOrder(t *testing.T) {
	steps := map[string]func(r *Readiness) bool{
		"sensors":  (*Readiness).SetSensors,
		"channels": (*Readiness).SetChannels,
		"device":   (*Readiness).SetDevice,
	}
	orders := [][]string{
		{"sensors", "channels", "device"},
		{"sensors", "device", "channels"},
		{"channels", "sensors", "device"},
		{"channels", "device", "sensors"},
		{"device", "sensors", "channels"},
		{"device", "channels", "sensors"},
	}

	for _, order := range orders {
		r := NewReadiness()
		for i, name := range order {
			assert.False(t, r.Ready(), "ready before %s", name)
			assert.True(t, steps[name](r))
			assert.False(t, steps[name](r), "flag %s set twice", name)
			if i < len(order)-1 {
				assert.False(t, r.Ready())
			}
		}
		assert.True(t, r.Ready())
		assert.True(t, r.Sensors())
		assert.True(t, r.Channels())
		assert.True(t, r.Device())

		select {
		case <-r.Done():
		default:
			t.Fatalf("done not closed for order %v", order)
		}
	}
}

func TestSurface_ChannelsReadyNeedsAllSlots(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	for ch := 0; ch < config.ChannelCount-1; ch++ {
		_, err := s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: ch, SensorType: NoSensor})
		require.NoError(t, err)
		assert.False(t, s.Readiness().Channels(), "channel %d", ch)
	}

	_, err := s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: 7, SensorType: ""})
	require.NoError(t, err)
	assert.True(t, s.Readiness().Channels())
	assert.False(t, s.Readiness().Ready())
}

func TestSurface_UnknownSensorResolvesLater(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())
	assignAll(t, s, "volt")

	assert.False(t, s.Readiness().Channels())
	assert.Nil(t, s.Assignments()[0])

	s.UpdateSensors(sensor.NewCatalog(voltageSensor))

	assert.True(t, s.Readiness().Sensors())
	assert.True(t, s.Readiness().Channels())
	require.NotNil(t, s.Assignments()[0])
	assert.Equal(t, "volt", s.Assignments()[0].Name)
}

func TestSurface_CatalogUpdateRebindsChannels(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())
	s.UpdateSensors(sensor.NewCatalog(voltageSensor))
	assignAll(t, s, "volt", "volt")

	mv := sensor.Definition{Name: "volt", Unit: "mV", Model: sensor.Voltage{}}
	s.UpdateSensors(sensor.NewCatalog(mv))

	got := s.Assignments()
	require.NotNil(t, got[0])
	require.NotNil(t, got[1])
	assert.Equal(t, "mV", got[0].Unit)
	assert.Equal(t, "mV", got[1].Unit)
	assert.Nil(t, got[2])
}

func TestSurface_IgnoresOtherModules(t *testing.T) {
	s := NewSurface(2, config.DefaultDevice())

	applied, err := s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: 0, SensorType: NoSensor})
	require.NoError(t, err)
	assert.False(t, applied)

	for ch := 0; ch < config.ChannelCount; ch++ {
		_, err := s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: ch, SensorType: NoSensor})
		require.NoError(t, err)
	}
	assert.False(t, s.Readiness().Channels())
}

func TestSurface_ChannelOutOfRange(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	for _, ch := range []int{-1, 8, 100} {
		applied, err := s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: ch, SensorType: NoSensor})
		assert.Error(t, err)
		assert.False(t, applied)
	}
}

func TestSurface_UpdateDevice(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	err := s.UpdateDevice([]byte(`{"interval": 0.5, "sample_count": 10}`))
	require.NoError(t, err)
	assert.True(t, s.Readiness().Device())

	dev := s.Device()
	assert.Equal(t, 0.5, dev.Interval)
	assert.Equal(t, 10, dev.SampleCount)
	assert.Equal(t, 3.3, dev.RefVoltage)
}

func TestSurface_UpdateDeviceInvalid(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	err := s.UpdateDevice([]byte(`{"interval": `))
	assert.Error(t, err)
	assert.False(t, s.Readiness().Device())
	assert.Equal(t, config.DefaultDevice(), s.Device())
}

func TestSurface_FullConfigIsReady(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	require.NoError(t, s.UpdateDevice([]byte(`{}`)))
	assignAll(t, s, "ntc10k", "none", "volt")
	s.UpdateSensors(sensor.NewCatalog(voltageSensor, ntcSensor))

	assert.True(t, s.Readiness().Ready())

	got := s.Assignments()
	assert.Equal(t, "ntc10k", got[0].Name)
	assert.Nil(t, got[1])
	assert.Equal(t, "volt", got[2].Name)
}

func TestSurface_ConcurrentUpdates(t *testing.T) {
	s := NewSurface(1, config.DefaultDevice())

	var wg sync.WaitGroup
	for ch := 0; ch < config.ChannelCount; ch++ {
		wg.Add(3)
		go func(ch int) {
			defer wg.Done()
			_, _ = s.UpdateChannel(ChannelConfig{ModuleID: 1, ChannelID: ch, SensorType: "volt"})
		}(ch)
		go func() {
			defer wg.Done()
			s.UpdateSensors(sensor.NewCatalog(voltageSensor))
		}()
		go func() {
			defer wg.Done()
			_ = s.UpdateDevice([]byte(`{"border": 20}`))
			_ = s.Assignments()
		}()
	}
	wg.Wait()

	assert.True(t, s.Readiness().Ready())
	for ch, def := range s.Assignments() {
		require.NotNil(t, def, "channel %d", ch)
		assert.Equal(t, "volt", def.Name)
	}
	assert.Equal(t, 20.0, s.Device().Border)
}
