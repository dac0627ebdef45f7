package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPort = "/dev/serial0"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.SerialPort)
	assert.Equal(t, 9600, cfg.SerialBaud)
	assert.Equal(t, time.Second, cfg.SerialReadTimeout)
	assert.False(t, cfg.SerialHex)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, 15*time.Second, cfg.StaleAfter)
	assert.Equal(t, time.Second, cfg.RefreshInterval)
	assert.False(t, cfg.Simulate)
	assert.Equal(t, time.Second, cfg.SimulateInterval)
	assert.Empty(t, cfg.SnapshotPath)
	assert.Equal(t, "Villa Astrid Control Room", cfg.DisplayTitle)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "sensor-readings", cfg.KafkaTopic)
	assert.False(t, cfg.RelayEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyUSB0")
	t.Setenv("SERIAL_BAUD", "115200")
	t.Setenv("SERIAL_READ_TIMEOUT", "250ms")
	t.Setenv("SERIAL_HEX", "true")
	t.Setenv("SENSOR_CATALOG", "/etc/controlroom/sensors.toml")
	t.Setenv("STALE_AFTER", "45s")
	t.Setenv("REFRESH_INTERVAL", "2s")
	t.Setenv("SIMULATE", "1")
	t.Setenv("SIMULATE_INTERVAL", "100ms")
	t.Setenv("SIMULATE_SEED", "42")
	t.Setenv("SNAPSHOT_PATH", "/tmp/sensors.json")
	t.Setenv("DISPLAY_TITLE", "Cabin")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/var/log/controlroom.log")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "cabin-readings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort)
	assert.Equal(t, 115200, cfg.SerialBaud)
	assert.Equal(t, 250*time.Millisecond, cfg.SerialReadTimeout)
	assert.True(t, cfg.SerialHex)
	assert.Equal(t, "/etc/controlroom/sensors.toml", cfg.CatalogPath)
	assert.Equal(t, 45*time.Second, cfg.StaleAfter)
	assert.Equal(t, 2*time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 100*time.Millisecond, cfg.SimulateInterval)
	assert.Equal(t, uint64(42), cfg.SimulateSeed)
	assert.Equal(t, "/tmp/sensors.json", cfg.SnapshotPath)
	assert.Equal(t, "Cabin", cfg.DisplayTitle)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/var/log/controlroom.log", cfg.LogFile)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "cabin-readings", cfg.KafkaTopic)
	assert.True(t, cfg.RelayEnabled())
}

func TestLoad_EmptyHTTPAddrDisablesServer(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTPAddr)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERIAL_BAUD", "fast"},
		{"SERIAL_BAUD", "0"},
		{"SERIAL_READ_TIMEOUT", "soon"},
		{"SERIAL_READ_TIMEOUT", "-1s"},
		{"SERIAL_HEX", "maybe"},
		{"STALE_AFTER", "0s"},
		{"REFRESH_INTERVAL", "never"},
		{"SIMULATE", "yes please"},
		{"SIMULATE_INTERVAL", "-5ms"},
		{"SIMULATE_SEED", "-1"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SerialPort:        defaultPort,
			SerialBaud:        9600,
			SerialReadTimeout: time.Second,
			StaleAfter:        15 * time.Second,
			RefreshInterval:   time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("missing port", func(t *testing.T) {
		cfg := valid()
		cfg.SerialPort = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERIAL_PORT")
	})

	t.Run("missing port with simulator", func(t *testing.T) {
		cfg := valid()
		cfg.SerialPort = ""
		cfg.Simulate = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("relay without topic", func(t *testing.T) {
		cfg := valid()
		cfg.KafkaBrokers = []string{"localhost:9092"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KAFKA_TOPIC")
	})

	t.Run("flag overrides zero baud", func(t *testing.T) {
		cfg := valid()
		cfg.SerialBaud = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERIAL_BAUD")
	})
}
