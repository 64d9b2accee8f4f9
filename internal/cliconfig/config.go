package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/hostlink/internal/adapters/sim"
	"github.com/bft-labs/hostlink/internal/output"
	"github.com/bft-labs/hostlink/pkg/hostlink"
	"github.com/bft-labs/hostlink/pkg/log"
)

// TransportSim selects the in-process simulated adapter.
const TransportSim = "sim"

// DefaultListenAddr is the default address of the JSON-RPC bridge.
const DefaultListenAddr = "127.0.0.1:7545"

// Config holds CLI configuration for hostlink.
type Config struct {
	Transport string

	CallTimeout         time.Duration
	SequenceTimeout     time.Duration
	NotificationTimeout time.Duration

	MinTransferID int
	MaxTransferID int

	LogLevel  string
	LogFormat string
	Output    string
	Listen    string

	SimLatency        time.Duration
	SimJitter         time.Duration
	SimNotifyInterval time.Duration
	SimSeed           int
	SimI2CAddress     int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	sc := sim.DefaultConfig()
	return Config{
		Transport:           TransportSim,
		CallTimeout:         hostlink.DefaultCallTimeout,
		SequenceTimeout:     hostlink.DefaultSequenceTimeout,
		NotificationTimeout: 5 * time.Second,
		MinTransferID:       hostlink.DefaultMinTransferID,
		MaxTransferID:       hostlink.DefaultMaxTransferID,
		LogLevel:            "info",
		LogFormat:           log.FormatConsole,
		Output:              output.FormatTable,
		Listen:              DefaultListenAddr,
		SimLatency:          sc.Latency,
		SimJitter:           sc.Jitter,
		SimSeed:             int(sc.Seed),
		SimI2CAddress:       int(sc.I2CAddress),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = TransportSim
	}
	if c.Transport != TransportSim {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}

	if c.MinTransferID < 1 || c.MaxTransferID > hostlink.DefaultMaxTransferID+1 || c.MinTransferID >= c.MaxTransferID {
		return fmt.Errorf("transfer id range [%d, %d) must satisfy 1 <= min < max <= 65536", c.MinTransferID, c.MaxTransferID)
	}

	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive")
	}
	if c.SequenceTimeout <= 0 {
		return fmt.Errorf("sequence timeout must be positive")
	}
	if c.NotificationTimeout <= 0 {
		return fmt.Errorf("notification timeout must be positive")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case log.FormatConsole, log.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if !output.Supported(c.Output) {
		return fmt.Errorf("unknown output format %q", c.Output)
	}

	if c.SimLatency < 0 || c.SimJitter < 0 || c.SimNotifyInterval < 0 {
		return fmt.Errorf("sim durations must not be negative")
	}
	if c.SimI2CAddress < 0 || c.SimI2CAddress > 0x7F {
		return fmt.Errorf("sim i2c address %#x out of range", c.SimI2CAddress)
	}
	return nil
}

// HostConfig returns the library configuration.
func (c Config) HostConfig() hostlink.Config {
	return hostlink.Config{
		MinTransferID:   uint32(c.MinTransferID),
		MaxTransferID:   uint32(c.MaxTransferID),
		CallTimeout:     c.CallTimeout,
		SequenceTimeout: c.SequenceTimeout,
	}
}

// SimConfig returns the simulated adapter configuration.
func (c Config) SimConfig() sim.Config {
	return sim.Config{
		Latency:        c.SimLatency,
		Jitter:         c.SimJitter,
		NotifyInterval: c.SimNotifyInterval,
		Seed:           uint64(c.SimSeed),
		I2CAddress:     uint8(c.SimI2CAddress),
	}
}

// configSetter applies values unless the corresponding flag was set
// explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt ignores non-positive values.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString accepts decimal, hex (0x) and octal (0o) values, so
// bus addresses can be written the usual way.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = int(i)
	return nil
}
