package hostlink

import (
	"github.com/bft-labs/hostlink/internal/ports"
	"github.com/bft-labs/hostlink/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Option configures optional behavior of Hostlink.
type Option func(*options)

// options holds the optional configuration for a Hostlink instance.
type options struct {
	logger       Logger
	eventHandler EventHandler
	plugins      []Plugin
	queueHint    int
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for lifecycle changes and unsequenced
// frames. If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Hostlink starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithQueueHint preallocates room for n inbound frames.
func WithQueueHint(n int) Option {
	return func(o *options) {
		o.queueHint = n
	}
}
