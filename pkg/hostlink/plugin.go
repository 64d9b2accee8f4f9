package hostlink

import "context"

// Plugin extends a Hostlink instance with optional behavior.
// Plugins are initialized in registration order when Start is called and
// shut down in reverse order by Stop.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize starts the plugin. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin. Errors are logged and do not stop the
	// remaining plugins from shutting down.
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	// Host is the instance the plugin is attached to.
	Host *Hostlink

	// Config is the configuration the instance was created with.
	Config Config

	// Logger is the instance's logger. Never nil.
	Logger Logger
}
