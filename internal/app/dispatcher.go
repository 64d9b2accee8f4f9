package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Frames        uint64 `json:"frames" yaml:"frames"`
	Notifications uint64 `json:"notifications" yaml:"notifications"`
	Calls         uint64 `json:"calls" yaml:"calls"`
	SequenceSteps uint64 `json:"sequence_steps" yaml:"sequence_steps"`
	Unsequenced   uint64 `json:"unsequenced" yaml:"unsequenced"`
	Collisions    uint64 `json:"collisions" yaml:"collisions"`
	Panics        uint64 `json:"panics" yaml:"panics"`
	Overwritten   uint64 `json:"overwritten" yaml:"overwritten"`
	Backlog       int    `json:"backlog" yaml:"backlog"`
}

type counters struct {
	frames        atomic.Uint64
	notifications atomic.Uint64
	calls         atomic.Uint64
	steps         atomic.Uint64
	unsequenced   atomic.Uint64
	collisions    atomic.Uint64
	panics        atomic.Uint64
}

// UnsequencedHandler receives frames that matched no call or sequence.
// It runs on the dispatcher goroutine and must return quickly.
type UnsequencedHandler interface {
	OnUnsequenced(f domain.Frame)
}

// Dispatcher is the single consumer of inbound frames. It classifies each
// frame and routes it to the notification channel, the pending-call
// registry or the sequencer, in that order of precedence.
type Dispatcher struct {
	queue         *frameQueue
	notifications *Notifications
	calls         *Registry
	sequences     *Sequencer
	unsequenced   UnsequencedHandler
	logger        ports.Logger
	stats         *counters
}

// Run drains the queue until ctx is canceled. Only one Run may be active
// per dispatcher.
func (d *Dispatcher) Run(ctx context.Context) error {
	var batch []domain.Frame
	for {
		var err error
		batch, err = d.queue.Drain(ctx, batch)
		if err != nil {
			return err
		}
		for _, f := range batch {
			d.dispatch(f)
		}
	}
}

// dispatch routes one frame. A panic raised while routing (for example by
// a sequence completion callback) is logged and does not stop the loop.
func (d *Dispatcher) dispatch(f domain.Frame) {
	defer func() {
		if r := recover(); r != nil {
			d.stats.panics.Add(1)
			d.logger.Error("frame dispatch panicked",
				ports.Uint64("id", uint64(f.ID)),
				ports.Stringer("command", f.Command),
				ports.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	d.stats.frames.Add(1)

	if f.IsNotification() {
		d.stats.notifications.Add(1)
		d.notifications.Publish(f)
		d.logger.Debug("notification received", ports.Stringer("command", f.Command))
		return
	}

	if d.calls.Deliver(f) {
		d.stats.calls.Add(1)
		d.logger.Debug("call response routed", ports.Uint64("id", uint64(f.ID)))
		return
	}

	if d.sequences.Deliver(f) {
		d.stats.steps.Add(1)
		d.logger.Debug("sequence response routed", ports.Uint64("id", uint64(f.ID)))
		return
	}

	d.stats.unsequenced.Add(1)
	d.logger.Warn("dropping unsequenced frame",
		ports.Uint64("id", uint64(f.ID)),
		ports.Stringer("command", f.Command),
		ports.Stringer("result", f.Result),
	)
	if d.unsequenced != nil {
		d.unsequenced.OnUnsequenced(f)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Frames:        c.frames.Load(),
		Notifications: c.notifications.Load(),
		Calls:         c.calls.Load(),
		SequenceSteps: c.steps.Load(),
		Unsequenced:   c.unsequenced.Load(),
		Collisions:    c.collisions.Load(),
		Panics:        c.panics.Load(),
	}
}
