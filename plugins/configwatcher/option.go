package configwatcher

import "github.com/bft-labs/hostlink/pkg/hostlink"

// WithConfigWatcher returns a hostlink Option that reloads the config file
// at cfg.Path while the instance runs.
//
// Usage:
//
//	h, err := hostlink.New(cfg, dev,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/hostlink/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) hostlink.Option {
	return hostlink.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches cliconfig.DefaultConfigPath.
func WithDefaultConfigWatcher() hostlink.Option {
	return WithConfigWatcher(DefaultConfig())
}
