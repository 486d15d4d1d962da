package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccess(t *testing.T) {
	host, unit, err := parseAccess("tcp:localhost:5020:1")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5020", host)
	assert.Equal(t, byte(1), unit)

	for _, bad := range []string{"rtu:/dev/ttyUSB0:9600:N:1:1", "tcp:localhost:5020", "tcp:localhost:port:1", "tcp:localhost:5020:x", "tcp:localhost:5020:256"} {
		_, _, err := parseAccess(bad)
		assert.Error(t, err, bad)
	}
}

func TestAddressRanges(t *testing.T) {
	got, err := addressRanges([]string{"0", "4:2"})
	require.NoError(t, err)
	assert.Equal(t, []addressedRange{{0, 1}, {4, 2}}, got)

	_, err = addressRanges([]string{"4:0"})
	assert.Error(t, err)
	_, err = addressRanges([]string{"-1"})
	assert.Error(t, err)
}

func TestAddressValues(t *testing.T) {
	got, err := addressValues([]string{"0:1", "4:22,23"})
	require.NoError(t, err)
	assert.Equal(t, []addressedValues{{0, []uint16{1}}, {4, []uint16{22, 23}}}, got)

	for _, bad := range []string{"4", "4:65536", "4:-1", "x:1"} {
		_, err := addressValues([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRegisterConversion(t *testing.T) {
	values := []uint16{1, 0x1234}
	data := registerBytes(values)
	assert.Equal(t, []byte{0, 1, 0x12, 0x34}, data)
	assert.Equal(t, values, registerValues(data))
}

func TestDecodeServerID(t *testing.T) {
	id, running := decodeServerID([]byte{3, 'A', 'C', 0xff})
	assert.Equal(t, "AC", id)
	assert.True(t, running)

	_, running = decodeServerID([]byte{5, 'A'})
	assert.False(t, running)
}

func TestDecodeDeviceID(t *testing.T) {
	data := []byte{0x0e, 0x01, 0x01, 0x00, 0x00, 0x02, 0x00, 0x02, 'M', 'e', 0x01, 0x01, 'X'}
	objs, err := decodeDeviceID(data)
	require.NoError(t, err)
	assert.Equal(t, []deviceObject{{0, "Me"}, {1, "X"}}, objs)

	_, err = decodeDeviceID(data[:11])
	assert.Error(t, err)
}
