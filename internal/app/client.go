package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

// DefaultCallTimeout bounds a single call when the caller passes no timeout.
const DefaultCallTimeout = 5 * time.Second

// ClientConfig contains configuration for the blocking client.
type ClientConfig struct {
	MinTransferID uint32
	MaxTransferID uint32
	CallTimeout   time.Duration

	// QueueHint preallocates the inbound queue.
	QueueHint int
}

// Client turns the asynchronous transport into blocking calls. It owns the
// transfer id allocator, the pending-call registry, the sequencer, the
// notification channel and the dispatcher goroutine.
type Client struct {
	transport ports.Transport
	logger    ports.Logger
	lifecycle *Lifecycle

	alloc         *Allocator
	calls         *Registry
	sequences     *Sequencer
	notifications *Notifications
	queue         *frameQueue
	dispatcher    *Dispatcher
	stats         *counters

	callTimeout atomic.Int64

	mu sync.Mutex
}

// NewClient creates a stopped client bound to transport.
func NewClient(
	config ClientConfig,
	transport ports.Transport,
	logger ports.Logger,
	emitter EventEmitter,
	unsequenced UnsequencedHandler,
) (*Client, error) {
	if config.MinTransferID == 0 && config.MaxTransferID == 0 {
		config.MinTransferID, config.MaxTransferID = MinTransferID, MaxTransferID
	}
	alloc, err := NewAllocator(config.MinTransferID, config.MaxTransferID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport:     transport,
		logger:        logger,
		lifecycle:     NewLifecycle(logger, emitter),
		alloc:         alloc,
		calls:         NewRegistry(),
		notifications: NewNotifications(),
		queue:         newFrameQueue(config.QueueHint),
		stats:         &counters{},
	}
	c.sequences = NewSequencer(alloc, c.claim, logger)
	c.dispatcher = &Dispatcher{
		queue:         c.queue,
		notifications: c.notifications,
		calls:         c.calls,
		sequences:     c.sequences,
		unsequenced:   unsequenced,
		logger:        logger,
		stats:         c.stats,
	}
	c.SetCallTimeout(config.CallTimeout)

	transport.OnFrame(c.queue.Push)
	return c, nil
}

// Start opens the transport and starts the dispatcher. The dispatcher runs
// until Stop is called or ctx is canceled.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	c.queue.Open()
	if err := c.transport.Open(ctx); err != nil {
		c.queue.Close()
		_ = c.lifecycle.TransitionTo(StateCrashed, "transport open failed: "+err.Error())
		return fmt.Errorf("open transport: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.lifecycle.SetCancel(cancel)

	// Running must be visible before the dispatcher can observe a done
	// context, or it would take the exit for Stop() in progress.
	if err := c.lifecycle.TransitionTo(StateRunning, "dispatcher started"); err != nil {
		cancel()
		c.queue.Close()
		_ = c.transport.Close()
		return err
	}
	c.lifecycle.Go(func() {
		err := c.dispatcher.Run(runCtx)
		if c.lifecycle.State() != StateRunning {
			return // Stop() in progress
		}
		// The caller's context ended without Stop(); release the device.
		c.queue.Close()
		if cerr := c.transport.Close(); cerr != nil {
			c.logger.Error("transport close failed", ports.Err(cerr))
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("dispatcher stopped", ports.Err(err))
		}
		_ = c.lifecycle.TransitionTo(StateCrashed, "dispatcher exited: "+err.Error())
	})
	return nil
}

// Stop halts the dispatcher and closes the transport. Calls still waiting
// run into their timeout.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := c.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	closeErr := c.transport.Close()
	c.lifecycle.Cancel()
	waitErr := c.lifecycle.WaitWithTimeout(ShutdownTimeout)
	c.queue.Close()

	if closeErr != nil {
		c.logger.Error("transport close failed", ports.Err(closeErr))
	}
	if waitErr != nil {
		_ = c.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
		return waitErr
	}
	_ = c.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	return closeErr
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return c.lifecycle.State()
}

// Call sends req and blocks until its correlated response arrives, the
// timeout elapses (timeout <= 0 uses the configured call timeout) or ctx
// is done.
//
// A request rejected by its immediate ack returns the ack as the response
// with a nil error. A missing reply returns domain.ErrTimeout; a reply that
// arrives later is dropped as unsequenced.
func (c *Client) Call(ctx context.Context, req domain.Request, timeout time.Duration) (domain.Response, error) {
	if !c.lifecycle.Running() {
		return domain.Response{}, domain.ErrNotRunning
	}
	if timeout <= 0 {
		timeout = c.CallTimeout()
	}

	id := c.alloc.Next()
	c.claim(id)
	call, _ := c.calls.register(id)

	ack, err := c.transport.Send(id, req)
	if err != nil {
		c.calls.abandon(call)
		return domain.Response{}, fmt.Errorf("send %s: %w", req.Command, err)
	}
	if !ack.Accepted() {
		c.calls.abandon(call)
		c.logger.Debug("request rejected",
			ports.Uint64("id", uint64(id)),
			ports.Stringer("command", req.Command),
			ports.Stringer("opcode", ack.Opcode),
		)
		return domain.ResponseFromAck(id, req.Command, ack), nil
	}

	// The reply may have raced ahead of us.
	if call.filled() {
		return call.resp, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case <-call.done:
		return call.resp, nil
	case <-timer.C:
		waitErr = domain.ErrTimeout
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if !c.calls.abandon(call) && call.filled() {
		return call.resp, nil
	}
	c.logger.Warn("call abandoned",
		ports.Uint64("id", uint64(id)),
		ports.Stringer("command", req.Command),
		ports.Duration("timeout", timeout),
		ports.Err(waitErr),
	)
	return domain.Response{}, waitErr
}

// Step builds a sequence step that sends req through the client's transport.
func (c *Client) Step(req domain.Request) Step {
	return Step{
		Command: req.Command,
		Send: func(id domain.TransferID) (domain.Ack, error) {
			return c.transport.Send(id, req)
		},
	}
}

// Submit sends steps in order as one sequence. See Sequencer.Submit.
func (c *Client) Submit(steps []Step, onComplete func([]domain.Response)) (domain.SequenceID, error) {
	if !c.lifecycle.Running() {
		return 0, domain.ErrNotRunning
	}
	return c.sequences.Submit(steps, onComplete), nil
}

// WaitFor blocks until the sequence completes. See Sequencer.WaitFor.
func (c *Client) WaitFor(ctx context.Context, id domain.SequenceID, timeout time.Duration) ([]domain.Response, error) {
	return c.sequences.WaitFor(ctx, id, timeout)
}

// Release forgets a sequence that will not be waited on.
func (c *Client) Release(id domain.SequenceID) {
	c.sequences.Release(id)
}

// Invoke submits steps and waits for all of their responses.
func (c *Client) Invoke(ctx context.Context, steps []Step, timeout time.Duration) ([]domain.Response, error) {
	id, err := c.Submit(steps, nil)
	if err != nil {
		return nil, err
	}
	resps, err := c.WaitFor(ctx, id, timeout)
	if err != nil {
		c.Release(id)
		return nil, err
	}
	return resps, nil
}

// NextNotification returns the retained notification or waits for the next
// one. timeout <= 0 waits without bound.
func (c *Client) NextNotification(ctx context.Context, timeout time.Duration) (domain.Frame, error) {
	return c.notifications.Next(ctx, timeout)
}

// LatestNotification peeks at the most recent notification.
func (c *Client) LatestNotification() (domain.Frame, bool) {
	return c.notifications.Latest()
}

// SetCallTimeout changes the default call timeout. d <= 0 restores
// DefaultCallTimeout.
func (c *Client) SetCallTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultCallTimeout
	}
	c.callTimeout.Store(int64(d))
}

// CallTimeout returns the default call timeout.
func (c *Client) CallTimeout() time.Duration {
	return time.Duration(c.callTimeout.Load())
}

// Stats returns a snapshot of the dispatcher counters.
func (c *Client) Stats() Stats {
	s := c.stats.snapshot()
	s.Overwritten = c.notifications.Overwritten()
	s.Backlog = c.queue.Len()
	return s
}

// Outstanding returns the number of pending calls and registered sequences.
func (c *Client) Outstanding() (calls, sequences int) {
	return c.calls.Len(), c.sequences.Len()
}

// claim reports an id that is still outstanding when it is reissued.
func (c *Client) claim(id domain.TransferID) {
	if !c.calls.Has(id) && !c.sequences.Has(id) {
		return
	}
	c.stats.collisions.Add(1)
	c.logger.Error("transfer id reissued while outstanding",
		ports.Uint64("id", uint64(id)),
		ports.Int("id_span", c.alloc.Span()),
	)
}
