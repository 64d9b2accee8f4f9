package hostlink

import (
	"github.com/bft-labs/hostlink/internal/app"
	"github.com/bft-labs/hostlink/internal/domain"
)

// State is the lifecycle state of a Hostlink instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// UnsequencedEvent carries a frame that matched no pending call or
// sequence, typically a reply that arrived after its caller timed out.
type UnsequencedEvent struct {
	Frame Frame
}

// EventHandler receives Hostlink events. Methods are called synchronously,
// OnUnsequenced from the dispatcher goroutine, and must return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnUnsequenced(event UnsequencedEvent)
}

// BaseEventHandler provides no-op implementations of every EventHandler
// method. Embed it to implement only the events of interest.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnUnsequenced(UnsequencedEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnUnsequenced(f domain.Frame) {
	if e.handler == nil {
		return
	}
	e.handler.OnUnsequenced(UnsequencedEvent{Frame: f})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
