// Package configwatcher reloads the CLI configuration file while a
// hostlink instance runs. Changes to call_timeout and log_level take
// effect without a restart.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/hostlink/internal/cliconfig"
	"github.com/bft-labs/hostlink/pkg/hostlink"
	"github.com/bft-labs/hostlink/pkg/log"
)

// Plugin watches one TOML file and applies the reloadable keys to the
// host it is attached to.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	pinned        map[string]bool

	host   *hostlink.Hostlink
	logger hostlink.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debounce *time.Timer
	reloads  atomic.Uint64
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the file to watch. Empty means cliconfig.DefaultConfigPath.
	Path string

	// DebounceDelay is how long to wait after the last change before
	// reloading. Editors often write a file in several steps.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Pinned names the flags set on the command line; their keys are
	// never overridden by a reload.
	Pinned map[string]bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Path == "" {
		cfg.Path = cliconfig.DefaultConfigPath()
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		pinned:        cfg.Pinned,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the directory holding the config file.
// The directory must exist; the file itself may appear later.
func (p *Plugin) Initialize(ctx context.Context, cfg hostlink.PluginConfig) error {
	p.mu.Lock()
	p.host = cfg.Host
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config path")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the file has been applied.
func (p *Plugin) Reloads() uint64 {
	return p.reloads.Load()
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.debounceReload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.reload(); err != nil {
			p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		}
	})
}

// reload applies the reloadable keys. A malformed file changes nothing.
func (p *Plugin) reload() error {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return err
	}

	var callTimeout time.Duration
	if fc.CallTimeout != "" && !p.pinned["call-timeout"] {
		callTimeout, err = time.ParseDuration(fc.CallTimeout)
		if err != nil {
			return fmt.Errorf("parse call_timeout: %w", err)
		}
		if callTimeout <= 0 {
			return fmt.Errorf("call_timeout must be positive, got %s", fc.CallTimeout)
		}
	}
	if fc.LogLevel != "" && !p.pinned["log-level"] {
		if err := log.SetLevel(fc.LogLevel); err != nil {
			return err
		}
	}
	if callTimeout > 0 {
		p.host.SetCallTimeout(callTimeout)
	}

	p.reloads.Add(1)
	p.logger.Info("config reloaded",
		log.String("path", p.path),
		log.Duration("call_timeout", p.host.CallTimeout()))
	return nil
}

var _ hostlink.Plugin = (*Plugin)(nil)
