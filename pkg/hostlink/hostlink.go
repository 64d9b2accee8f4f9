package hostlink

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/hostlink/internal/app"
	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

// Hostlink drives one host adapter through blocking, goroutine-safe calls.
// Use New() to create an instance, then Start() to open the transport.
type Hostlink struct {
	config  Config
	client  *app.Client
	logger  ports.Logger
	plugins []Plugin

	mu sync.Mutex
}

// New creates a Hostlink bound to transport. The instance is created in
// StateStopped; call Start() before issuing requests.
// Returns an error if the configuration is invalid.
func New(cfg Config, transport Transport, opts ...Option) (*Hostlink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	client, err := app.NewClient(app.ClientConfig{
		MinTransferID: cfg.MinTransferID,
		MaxTransferID: cfg.MaxTransferID,
		CallTimeout:   cfg.CallTimeout,
		QueueHint:     o.queueHint,
	}, transport, o.logger, emitter, emitter)
	if err != nil {
		return nil, err
	}

	return &Hostlink{
		config:  cfg,
		client:  client,
		logger:  o.logger,
		plugins: o.plugins,
	}, nil
}

// Start initializes plugins, opens the transport and starts the dispatcher.
// The dispatcher runs until Stop is called or ctx is canceled.
func (h *Hostlink) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if st := h.client.State(); st != app.StateStopped && st != app.StateCrashed {
		return domain.ErrAlreadyRunning
	}

	pluginCfg := PluginConfig{Host: h, Config: h.config, Logger: h.logger}
	for i, p := range h.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			h.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			h.shutdownPlugins(h.plugins[:i])
			return err
		}
		h.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if err := h.client.Start(ctx); err != nil {
		h.shutdownPlugins(h.plugins)
		return err
	}
	return nil
}

// Stop closes the transport and stops the dispatcher and plugins.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (h *Hostlink) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.client.Stop()
	if err == domain.ErrNotRunning {
		return err
	}
	h.shutdownPlugins(h.plugins)
	return err
}

// shutdownPlugins shuts plugins down in reverse order.
func (h *Hostlink) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			h.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			h.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (h *Hostlink) Status() State {
	return convertState(h.client.State())
}

// Config returns the configuration the instance was created with.
func (h *Hostlink) Config() Config {
	return h.config
}

// Call sends req and blocks until its response arrives. A timeout <= 0
// uses the configured call timeout. A rejected request returns the
// rejecting ack as the response with a nil error; a missing reply returns
// ErrTimeout.
func (h *Hostlink) Call(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	return h.client.Call(ctx, req, timeout)
}

// Step builds a sequence step that sends req.
func (h *Hostlink) Step(req Request) Step {
	return h.client.Step(req)
}

// Submit sends steps as one sequence without waiting. onComplete, if not
// nil, receives the responses in submission order once all have arrived;
// it runs on the dispatcher goroutine and must return quickly. A sequence
// with a callback is released when it completes. One without a callback
// that is never waited on must be released with Release.
func (h *Hostlink) Submit(steps []Step, onComplete func([]Response)) (SequenceID, error) {
	return h.client.Submit(steps, onComplete)
}

// WaitFor blocks until every step of the sequence has a response and
// returns them in submission order. timeout <= 0 waits without bound.
// After ErrTimeout the sequence stays registered and may be waited on again.
func (h *Hostlink) WaitFor(ctx context.Context, id SequenceID, timeout time.Duration) ([]Response, error) {
	return h.client.WaitFor(ctx, id, timeout)
}

// Release forgets a submitted sequence.
func (h *Hostlink) Release(id SequenceID) {
	h.client.Release(id)
}

// Invoke submits steps and waits for all of their responses. A timeout
// <= 0 uses the configured sequence timeout.
func (h *Hostlink) Invoke(ctx context.Context, steps []Step, timeout time.Duration) ([]Response, error) {
	if timeout <= 0 {
		timeout = h.config.SequenceTimeout
	}
	return h.client.Invoke(ctx, steps, timeout)
}

// NextNotification returns the most recent unconsumed notification or
// waits for the next one. timeout <= 0 waits without bound.
func (h *Hostlink) NextNotification(ctx context.Context, timeout time.Duration) (Frame, error) {
	return h.client.NextNotification(ctx, timeout)
}

// LatestNotification returns the most recent notification without
// consuming it. ok is false until the first notification arrives.
func (h *Hostlink) LatestNotification() (n Frame, ok bool) {
	return h.client.LatestNotification()
}

// Stats returns a snapshot of the dispatcher counters.
func (h *Hostlink) Stats() Stats {
	return h.client.Stats()
}

// SetCallTimeout changes the default call timeout of a live instance.
func (h *Hostlink) SetCallTimeout(d time.Duration) {
	h.client.SetCallTimeout(d)
	h.logger.Info("call timeout updated", ports.Duration("call_timeout", h.client.CallTimeout()))
}

// CallTimeout returns the default call timeout.
func (h *Hostlink) CallTimeout() time.Duration {
	return h.client.CallTimeout()
}

// Outstanding returns the number of pending calls and registered sequences.
func (h *Hostlink) Outstanding() (calls, sequences int) {
	return h.client.Outstanding()
}
