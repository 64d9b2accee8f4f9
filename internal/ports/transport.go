package ports

import (
	"context"

	"github.com/bft-labs/hostlink/internal/domain"
)

// Transport is the asynchronous request/response link to one host adapter.
// The byte-level framing is owned entirely by the implementation.
type Transport interface {
	// Open connects to the device. Frames may be delivered as soon as Open
	// returns, so OnFrame should be registered first.
	Open(ctx context.Context) error

	// Close releases the device. No frames are delivered after Close returns.
	Close() error

	// Send transmits a request tagged with id and returns the immediate ack
	// synchronously. An ack with a nonzero opcode is the final result; an
	// accepted request is answered later by a frame carrying the same id.
	// A non-nil error means the request could not be handed to the device.
	Send(id domain.TransferID, req domain.Request) (domain.Ack, error)

	// OnFrame registers the callback invoked from the transport's own
	// delivery goroutine with every inbound frame, solicited or not.
	// The callback must not block.
	OnFrame(fn func(domain.Frame))
}
