package hostlink

import (
	"fmt"
	"time"

	"github.com/bft-labs/hostlink/internal/app"
	"github.com/bft-labs/hostlink/internal/domain"
)

// Default configuration values.
const (
	DefaultMinTransferID   = app.MinTransferID
	DefaultMaxTransferID   = app.MaxTransferID
	DefaultCallTimeout     = app.DefaultCallTimeout
	DefaultSequenceTimeout = 10 * time.Second
)

// Config holds the configuration of a Hostlink instance.
// Zero values are replaced by SetDefaults.
type Config struct {
	// MinTransferID and MaxTransferID bound the transfer ids handed out,
	// as the half-open range [MinTransferID, MaxTransferID).
	MinTransferID uint32
	MaxTransferID uint32

	// CallTimeout bounds a single call that passes no explicit timeout.
	CallTimeout time.Duration

	// SequenceTimeout bounds the sequences issued by Device.
	SequenceTimeout time.Duration
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.MinTransferID == 0 && c.MaxTransferID == 0 {
		c.MinTransferID = DefaultMinTransferID
		c.MaxTransferID = DefaultMaxTransferID
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.SequenceTimeout <= 0 {
		c.SequenceTimeout = DefaultSequenceTimeout
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinTransferID == 0 {
		return fmt.Errorf("%w: min transfer id must be at least 1", domain.ErrInvalidConfig)
	}
	if c.MaxTransferID <= c.MinTransferID || c.MaxTransferID > DefaultMaxTransferID+1 {
		return fmt.Errorf("%w: transfer id range [%d, %d) outside [1, 65536)",
			domain.ErrInvalidConfig, c.MinTransferID, c.MaxTransferID)
	}
	if c.CallTimeout < 0 || c.SequenceTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
