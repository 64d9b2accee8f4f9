package cliconfig

import (
	"io"

	"github.com/bft-labs/hostlink/pkg/log"
)

// NewLogger builds the zerolog adapter described by cfg and sets the
// process-wide level.
func NewLogger(cfg Config, w io.Writer) (*log.ZerologAdapter, error) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return log.NewZerologAdapterWithFormat(w, cfg.LogFormat), nil
}
