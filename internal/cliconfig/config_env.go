package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "HOSTLINK_"

// ApplyEnvConfig applies configuration from environment variables (HOSTLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("transport", env("TRANSPORT"), &cfg.Transport)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("output", env("OUTPUT"), &cfg.Output)
	s.setString("listen", env("LISTEN"), &cfg.Listen)

	if err := s.setDuration("call-timeout", env("CALL_TIMEOUT"), &cfg.CallTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sequence-timeout", env("SEQUENCE_TIMEOUT"), &cfg.SequenceTimeout); err != nil {
		return err
	}
	if err := s.setDuration("notification-timeout", env("NOTIFICATION_TIMEOUT"), &cfg.NotificationTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sim-latency", env("SIM_LATENCY"), &cfg.SimLatency); err != nil {
		return err
	}
	if err := s.setDuration("sim-jitter", env("SIM_JITTER"), &cfg.SimJitter); err != nil {
		return err
	}
	if err := s.setDuration("sim-notify-interval", env("SIM_NOTIFY_INTERVAL"), &cfg.SimNotifyInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("min-transfer-id", env("MIN_TRANSFER_ID"), &cfg.MinTransferID); err != nil {
		return err
	}
	if err := s.setIntFromString("max-transfer-id", env("MAX_TRANSFER_ID"), &cfg.MaxTransferID); err != nil {
		return err
	}
	if err := s.setIntFromString("sim-seed", env("SIM_SEED"), &cfg.SimSeed); err != nil {
		return err
	}
	if err := s.setIntFromString("sim-i2c-address", env("SIM_I2C_ADDRESS"), &cfg.SimI2CAddress); err != nil {
		return err
	}

	return nil
}
