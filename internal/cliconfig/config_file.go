package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Transport           string `toml:"transport"`
	CallTimeout         string `toml:"call_timeout"`
	SequenceTimeout     string `toml:"sequence_timeout"`
	NotificationTimeout string `toml:"notification_timeout"`
	MinTransferID       int    `toml:"min_transfer_id"`
	MaxTransferID       int    `toml:"max_transfer_id"`
	LogLevel            string `toml:"log_level"`
	LogFormat           string `toml:"log_format"`
	Output              string `toml:"output"`
	Listen              string `toml:"listen"`
	SimLatency          string `toml:"sim_latency"`
	SimJitter           string `toml:"sim_jitter"`
	SimNotifyInterval   string `toml:"sim_notify_interval"`
	SimSeed             int    `toml:"sim_seed"`
	SimI2CAddress       int    `toml:"sim_i2c_address"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.hostlink/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".hostlink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("listen", fc.Listen, &cfg.Listen)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"call-timeout", fc.CallTimeout, &cfg.CallTimeout},
		{"sequence-timeout", fc.SequenceTimeout, &cfg.SequenceTimeout},
		{"notification-timeout", fc.NotificationTimeout, &cfg.NotificationTimeout},
		{"sim-latency", fc.SimLatency, &cfg.SimLatency},
		{"sim-jitter", fc.SimJitter, &cfg.SimJitter},
		{"sim-notify-interval", fc.SimNotifyInterval, &cfg.SimNotifyInterval},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("min-transfer-id", fc.MinTransferID, &cfg.MinTransferID)
	s.setInt("max-transfer-id", fc.MaxTransferID, &cfg.MaxTransferID)
	s.setInt("sim-seed", fc.SimSeed, &cfg.SimSeed)
	s.setInt("sim-i2c-address", fc.SimI2CAddress, &cfg.SimI2CAddress)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
