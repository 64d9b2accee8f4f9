package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Transport != TransportSim {
		t.Errorf("Transport = %v, want sim", cfg.Transport)
	}
	if cfg.MinTransferID != 1 || cfg.MaxTransferID != 65535 {
		t.Errorf("transfer ids = [%d, %d), want [1, 65535)", cfg.MinTransferID, cfg.MaxTransferID)
	}
	if cfg.CallTimeout != 5*time.Second {
		t.Errorf("CallTimeout = %v, want 5s", cfg.CallTimeout)
	}
	if cfg.SimI2CAddress != 0x50 {
		t.Errorf("SimI2CAddress = %#x, want 0x50", cfg.SimI2CAddress)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty transport defaults to sim", func(c *Config) { c.Transport = "" }, false},
		{"transport is case insensitive", func(c *Config) { c.Transport = " SIM " }, false},
		{"unknown transport", func(c *Config) { c.Transport = "usb" }, true},
		{"full id range", func(c *Config) { c.MinTransferID, c.MaxTransferID = 1, 65536 }, false},
		{"zero min id", func(c *Config) { c.MinTransferID = 0 }, true},
		{"max beyond 16 bits", func(c *Config) { c.MaxTransferID = 65537 }, true},
		{"empty range", func(c *Config) { c.MinTransferID, c.MaxTransferID = 10, 10 }, true},
		{"zero call timeout", func(c *Config) { c.CallTimeout = 0 }, true},
		{"negative sequence timeout", func(c *Config) { c.SequenceTimeout = -time.Second }, true},
		{"zero notification timeout", func(c *Config) { c.NotificationTimeout = 0 }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }, true},
		{"json log format", func(c *Config) { c.LogFormat = "json" }, false},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"yaml output", func(c *Config) { c.Output = "yaml" }, false},
		{"unknown output", func(c *Config) { c.Output = "csv" }, true},
		{"negative jitter", func(c *Config) { c.SimJitter = -time.Millisecond }, true},
		{"ten bit address", func(c *Config) { c.SimI2CAddress = 0x80 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinTransferID, cfg.MaxTransferID = 100, 200
	cfg.CallTimeout = time.Second
	cfg.SimJitter = 3 * time.Millisecond
	cfg.SimSeed = 42
	cfg.SimI2CAddress = 0x51

	hc := cfg.HostConfig()
	if hc.MinTransferID != 100 || hc.MaxTransferID != 200 || hc.CallTimeout != time.Second {
		t.Errorf("HostConfig() = %+v", hc)
	}
	if err := hc.Validate(); err != nil {
		t.Errorf("HostConfig().Validate() = %v", err)
	}

	sc := cfg.SimConfig()
	if sc.Jitter != 3*time.Millisecond || sc.Seed != 42 || sc.I2CAddress != 0x51 {
		t.Errorf("SimConfig() = %+v", sc)
	}
}

func TestConfigSetter_IntFromString(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"80", 80, false},
		{"0x50", 0x50, false},
		{"0", 7, false},
		{"-3", 7, false},
		{"fifty", 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			dst := 7
			err := newConfigSetter(nil).setIntFromString("x", tt.value, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setIntFromString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if dst != tt.want {
				t.Errorf("dst = %d, want %d", dst, tt.want)
			}
		})
	}
}
