package cliconfig

import "fmt"

// Load resolves the configuration in order: defaults already in cfg, the
// TOML file at path (if it exists), HOSTLINK_* variables, then the flags
// named in changed, which the caller has already written into cfg.
func Load(cfg *Config, path string, changed map[string]bool) error {
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}
