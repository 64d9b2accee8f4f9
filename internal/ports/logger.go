package ports

import "github.com/bft-labs/hostlink/pkg/log"

// Logger is the structured logging port used throughout the application
// layer. It is the same interface as pkg/log so adapters can be shared.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Stringer = log.Stringer
	Int      = log.Int
	Uint64   = log.Uint64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
