package modbus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mbsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:502", cfg.ListenAddress())
	assert.Equal(t, 1, cfg.UnitID)
	assert.Equal(t, 120, cfg.Registers)
	assert.Equal(t, "AC Unit (On/Off)", cfg.Labels.Label(0))
	assert.Equal(t, "ESP32-TESTER", cfg.Identity.ProductCode)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
address: 127.0.0.1
port: 5020
unit_id: 3
registers: 200
log_level: debug
labels:
  4: Setpoint
  150: Extra
identity:
  product_name: Test Unit
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5020", cfg.ListenAddress())
	assert.Equal(t, 3, cfg.UnitID)
	assert.Equal(t, 200, cfg.Registers)

	assert.Equal(t, "Setpoint", cfg.Labels.Label(4))
	assert.Equal(t, "Extra", cfg.Labels.Label(150))
	assert.Equal(t, "AC Unit (On/Off)", cfg.Labels.Label(0), "default labels are kept")

	assert.Equal(t, "Test Unit", cfg.Identity.ProductName)
	assert.Equal(t, "ESP32-TESTER", cfg.Identity.ProductCode)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "port: [1, 2"))
	assert.Error(t, err)

	cases := map[string]string{
		"port":      "port: 70000",
		"unit":      "unit_id: 0",
		"registers": "registers: 119",
		"log level": "log_level: loud",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMetadataLengths(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server_id: "+strings.Repeat("x", MaxServerIDLength+1)))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "identity:\n  vendor_name: "+strings.Repeat("v", MaxIdentityObjectLength+1)))
	assert.Error(t, err)

	cfg, err := LoadConfig(writeConfig(t, "server_id: "+strings.Repeat("x", MaxServerIDLength)+
		"\nidentity:\n  vendor_name: "+strings.Repeat("v", MaxIdentityObjectLength)))
	require.NoError(t, err)
	assert.Len(t, cfg.ServerID, MaxServerIDLength)
	assert.Len(t, cfg.Identity.VendorName, MaxIdentityObjectLength)
}
