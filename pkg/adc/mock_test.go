package adc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_ReplaysReadings(t *testing.T) {
	m := NewMock()
	m.SetReadings(2, 10, 20, 30)

	var got []uint16
	for i := 0; i < 5; i++ {
		v, err := m.ReadChannel(2)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []uint16{10, 20, 30, 10, 20}, got)

	v, err := m.ReadChannel(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), v, "unscripted channel reads zero")
	assert.Equal(t, 6, m.Reads())
}

func TestMock_MasksTo12Bits(t *testing.T) {
	m := NewMock()
	m.SetAll(0xFFFF)

	v, err := m.ReadChannel(7)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0FFF), v)
}

func TestMock_FailAt(t *testing.T) {
	m := NewMock()
	m.SetAll(100)
	cause := errors.New("miso stuck high")
	m.FailAt(2, cause)

	_, err := m.ReadChannel(0)
	require.NoError(t, err)

	_, err = m.ReadChannel(1)
	assert.True(t, errors.Is(err, ErrHardwareIO))
	assert.True(t, errors.Is(err, cause))

	_, err = m.ReadChannel(1)
	assert.NoError(t, err, "fault fires once")

	m.FailAt(1, nil)
	_, err = m.ReadChannel(1)
	assert.True(t, errors.Is(err, ErrHardwareIO))
}

func TestMock_InvalidChannelAndClose(t *testing.T) {
	m := NewMock()

	_, err := m.ReadChannel(Channels)
	assert.True(t, errors.Is(err, ErrInvalidChannel))
	assert.Equal(t, 0, m.Reads())

	require.NoError(t, m.Close())
	_, err = m.ReadChannel(0)
	assert.True(t, errors.Is(err, ErrClosed))
}
