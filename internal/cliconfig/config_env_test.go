package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		changed map[string]bool
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "applies valid env vars",
			envVars: map[string]string{
				"HOSTLINK_CALL_TIMEOUT":    "750ms",
				"HOSTLINK_MAX_TRANSFER_ID": "4096",
				"HOSTLINK_LOG_LEVEL":       "warn",
				"HOSTLINK_LISTEN":          ":9000",
				"HOSTLINK_SIM_I2C_ADDRESS": "0x57",
			},
			changed: map[string]bool{},
			check: func(t *testing.T, c Config) {
				if c.CallTimeout != 750*time.Millisecond {
					t.Errorf("CallTimeout = %v", c.CallTimeout)
				}
				if c.MaxTransferID != 4096 {
					t.Errorf("MaxTransferID = %v", c.MaxTransferID)
				}
				if c.LogLevel != "warn" || c.Listen != ":9000" {
					t.Errorf("LogLevel/Listen = %s/%s", c.LogLevel, c.Listen)
				}
				if c.SimI2CAddress != 0x57 {
					t.Errorf("SimI2CAddress = %#x", c.SimI2CAddress)
				}
			},
		},
		{
			name:    "respects changed flags",
			envVars: map[string]string{"HOSTLINK_OUTPUT": "yaml", "HOSTLINK_SIM_SEED": "9"},
			changed: map[string]bool{"output": true},
			check: func(t *testing.T, c Config) {
				if c.Output != "table" {
					t.Errorf("Output = %v, want flag value table", c.Output)
				}
				if c.SimSeed != 9 {
					t.Errorf("SimSeed = %v, want 9", c.SimSeed)
				}
			},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"HOSTLINK_SIM_LATENCY": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"HOSTLINK_MIN_TRANSFER_ID": "one"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
call_timeout = "1s"
sequence_timeout = "2s"
notification_timeout = "3s"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	t.Setenv("HOSTLINK_SEQUENCE_TIMEOUT", "20s")
	t.Setenv("HOSTLINK_NOTIFICATION_TIMEOUT", "30s")

	cfg := DefaultConfig()
	cfg.NotificationTimeout = 300 * time.Second
	changed := map[string]bool{"notification-timeout": true}

	if err := Load(&cfg, configPath, changed); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CallTimeout != time.Second {
		t.Errorf("CallTimeout = %v, want file value 1s", cfg.CallTimeout)
	}
	if cfg.SequenceTimeout != 20*time.Second {
		t.Errorf("SequenceTimeout = %v, want env value 20s", cfg.SequenceTimeout)
	}
	if cfg.NotificationTimeout != 300*time.Second {
		t.Errorf("NotificationTimeout = %v, want flag value 300s", cfg.NotificationTimeout)
	}
}

func TestLoad_MissingFileAndInvalidResult(t *testing.T) {
	cfg := DefaultConfig()
	if err := Load(&cfg, filepath.Join(t.TempDir(), "absent.toml"), nil); err != nil {
		t.Fatalf("Load() with missing file = %v", err)
	}

	t.Setenv("HOSTLINK_TRANSPORT", "usb")
	cfg = DefaultConfig()
	if err := Load(&cfg, "", nil); err == nil {
		t.Error("Load() expected validation error for unknown transport")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	if _, err := NewLogger(cfg, os.Stderr); err != nil {
		t.Errorf("NewLogger() error = %v", err)
	}
	cfg.LogLevel = "chatty"
	if _, err := NewLogger(cfg, os.Stderr); err == nil {
		t.Error("NewLogger() expected error for unknown level")
	}
}
