package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables
// and optionally overridden by command-line flags.
type Config struct {
	SerialPort        string
	SerialBaud        int
	SerialReadTimeout time.Duration
	SerialHex         bool

	CatalogPath     string
	StaleAfter      time.Duration
	RefreshInterval time.Duration

	Simulate         bool
	SimulateInterval time.Duration
	SimulateSeed     uint64

	SnapshotPath string
	DisplayTitle string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// Optional Kafka relay of accepted readings.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	baud, err := parsePositiveInt("SERIAL_BAUD", 9600)
	if err != nil {
		return nil, err
	}
	readTimeout, err := parsePositiveDuration("SERIAL_READ_TIMEOUT", time.Second)
	if err != nil {
		return nil, err
	}
	hex, err := parseBool("SERIAL_HEX", false)
	if err != nil {
		return nil, err
	}
	staleAfter, err := parsePositiveDuration("STALE_AFTER", 15*time.Second)
	if err != nil {
		return nil, err
	}
	refresh, err := parsePositiveDuration("REFRESH_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	simulate, err := parseBool("SIMULATE", false)
	if err != nil {
		return nil, err
	}
	simulateInterval, err := parsePositiveDuration("SIMULATE_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	seed, err := parseSeed("SIMULATE_SEED")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		SerialPort:        sharedcfg.EnvOrDefault("SERIAL_PORT", "/dev/serial0"),
		SerialBaud:        baud,
		SerialReadTimeout: readTimeout,
		SerialHex:         hex,
		CatalogPath:       os.Getenv("SENSOR_CATALOG"),
		StaleAfter:        staleAfter,
		RefreshInterval:   refresh,
		Simulate:          simulate,
		SimulateInterval:  simulateInterval,
		SimulateSeed:      seed,
		SnapshotPath:      os.Getenv("SNAPSHOT_PATH"),
		DisplayTitle:      sharedcfg.EnvOrDefault("DISPLAY_TITLE", "Villa Astrid Control Room"),
		HTTPAddr:          httpAddr(),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		LogFile:           os.Getenv("LOG_FILE"),
		ShutdownTimeout:   shutdownTimeout,
		KafkaBrokers:      brokers,
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sensor-readings"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that flags can change after Load.
func (c *Config) Validate() error {
	if !c.Simulate && c.SerialPort == "" {
		return errors.New("SERIAL_PORT is required unless SIMULATE is set")
	}
	if c.SerialBaud <= 0 {
		return errors.New("invalid SERIAL_BAUD: must be positive")
	}
	if c.SerialReadTimeout <= 0 {
		return errors.New("invalid SERIAL_READ_TIMEOUT: must be positive")
	}
	if c.StaleAfter <= 0 {
		return errors.New("invalid STALE_AFTER: must be positive")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("invalid REFRESH_INTERVAL: must be positive")
	}
	if c.RelayEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// RelayEnabled reports whether accepted readings are relayed to Kafka.
func (c *Config) RelayEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// httpAddr returns HTTP_ADDR, defaulting to :8080 when unset. An explicitly
// empty value disables the server.
func httpAddr() string {
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		return v
	}
	return ":8080"
}

func parsePositiveDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be a boolean", key, s)
	}
	return b, nil
}

// parseSeed reads the simulator seed; unset means seed from the clock.
func parseSeed(key string) (uint64, error) {
	s := os.Getenv(key)
	if s == "" {
		return uint64(time.Now().UnixNano()), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an unsigned integer", key, s)
	}
	return n, nil
}
