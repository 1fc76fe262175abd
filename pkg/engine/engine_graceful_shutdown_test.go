package engine

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/thermod/pkg/adc"
	"github.com/itohio/thermod/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEngine_GracefulShutdown_WhileAwaitingConfig tests that a stop request
// ends the unbounded configuration wait without touching the hardware.
func TestEngine_GracefulShutdown_WhileAwaitingConfig(t *testing.T) {
	opened := false
	e := New(NewSurface(1, config.DefaultDevice()), func(config.Device) (adc.Transport, error) {
		opened = true
		return adc.NewMock(), nil
	}, &recorder{})

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background())
	}()

	// Give Run time to block on readiness
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseAwaitingConfig, e.Phase())

	require.NoError(t, e.HandleCommand(CommandShutdown))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return while awaiting config")
	}

	assert.Equal(t, PhaseStopped, e.Phase())
	assert.False(t, opened)
}

// TestEngine_GracefulShutdown_DuringSleep tests that stopping does not wait
// for a long interval to elapse.
func TestEngine_GracefulShutdown_DuringSleep(t *testing.T) {
	s := readySurface(t, `{"sample_count": 1, "interval": 3600}`)
	m := adc.NewMock()
	pub := &recorder{}
	e := New(s, mockFactory(m), pub)

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		return len(pub.Results()) == adc.Channels
	}, time.Second, 5*time.Millisecond)

	e.Stop()
	e.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return during sleep")
	}

	assert.Len(t, pub.Results(), adc.Channels)
	assert.Equal(t, adc.Channels, m.Reads())
}

// TestEngine_GracefulShutdown_ContextCancel tests that cancelling the run
// context stops the loop and closes the transport.
func TestEngine_GracefulShutdown_ContextCancel(t *testing.T) {
	s := readySurface(t, `{"sample_count": 1, "interval": 0.005}`)
	m := adc.NewMock()
	pub := &recorder{}
	e := New(s, mockFactory(m), pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(pub.Results()) >= 2*adc.Channels
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, PhaseStopped, e.Phase())

	// No I/O after the loop exits
	reads := m.Reads()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, reads, m.Reads())
}
