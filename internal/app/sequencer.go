package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

// Step is one operation of a sequence. Send receives the transfer id
// allocated for it immediately before it is called; Command labels the
// response when the step is rejected before reaching the device.
type Step struct {
	Command domain.Command
	Send    func(id domain.TransferID) (domain.Ack, error)
}

// SequenceState is the lifecycle of one submitted sequence.
type SequenceState int

const (
	SequenceSubmitting SequenceState = iota
	SequenceAwaiting
	SequenceComplete
)

// String returns a human-readable representation of the state.
func (s SequenceState) String() string {
	switch s {
	case SequenceSubmitting:
		return "Submitting"
	case SequenceAwaiting:
		return "AwaitingResponses"
	case SequenceComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// sequence is guarded by the owning Sequencer's mutex.
type sequence struct {
	id         domain.SequenceID
	state      SequenceState
	ids        []domain.TransferID
	responses  map[domain.TransferID]domain.Response
	results    []domain.Response
	onComplete func([]domain.Response)
	done       chan struct{}
}

// complete reports whether every issued id has a response and no more
// steps are coming.
func (s *sequence) complete() bool {
	return s.state != SequenceSubmitting && len(s.responses) == len(s.ids)
}

// assemble orders responses by submission index.
func (s *sequence) assemble() []domain.Response {
	out := make([]domain.Response, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.responses[id]
	}
	return out
}

// Sequencer tracks ordered batches of operations awaiting one response per
// step and reassembles them in submission order.
type Sequencer struct {
	mu        sync.Mutex
	nextID    domain.SequenceID
	sequences map[domain.SequenceID]*sequence
	active    map[domain.TransferID]*sequence

	alloc  *Allocator
	claim  func(domain.TransferID)
	logger ports.Logger
}

// NewSequencer creates a sequencer drawing ids from alloc. claim, if not
// nil, is called with every id before it is registered (collision checks).
func NewSequencer(alloc *Allocator, claim func(domain.TransferID), logger ports.Logger) *Sequencer {
	return &Sequencer{
		sequences: make(map[domain.SequenceID]*sequence),
		active:    make(map[domain.TransferID]*sequence),
		alloc:     alloc,
		claim:     claim,
		logger:    logger,
	}
}

// Submit runs steps in order, each with a fresh transfer id, and returns
// the sequence id to wait on. onComplete (optional) receives the ordered
// responses once every step has one; such a sequence is released when it
// completes, so only waits started before completion see its results.
//
// A step that is rejected by its ack, or whose send fails, is recorded as
// that step's final response; the sequence never blocks on it.
func (s *Sequencer) Submit(steps []Step, onComplete func([]domain.Response)) domain.SequenceID {
	s.mu.Lock()
	s.nextID++
	seq := &sequence{
		id:         s.nextID,
		state:      SequenceSubmitting,
		ids:        make([]domain.TransferID, 0, len(steps)),
		responses:  make(map[domain.TransferID]domain.Response, len(steps)),
		onComplete: onComplete,
		done:       make(chan struct{}),
	}
	s.sequences[seq.id] = seq
	s.mu.Unlock()

	for i, step := range steps {
		cmd := step.Command
		id := s.alloc.Next()
		if s.claim != nil {
			s.claim(id)
		}

		s.mu.Lock()
		seq.ids = append(seq.ids, id)
		s.active[id] = seq
		s.mu.Unlock()

		ack, err := step.Send(id)
		switch {
		case err != nil:
			s.record(seq, id, domain.Response{ID: id, Command: cmd, Err: fmt.Errorf("send step %d: %w", i, err)})
		case !ack.Accepted():
			s.record(seq, id, domain.ResponseFromAck(id, cmd, ack))
		}
	}

	s.mu.Lock()
	seq.state = SequenceAwaiting
	fire := s.finishLocked(seq)
	s.mu.Unlock()

	if fire {
		s.fire(seq)
	}

	s.logger.Debug("sequence submitted",
		ports.Uint64("sequence", uint64(seq.id)),
		ports.Int("steps", len(steps)),
	)
	return seq.id
}

// record stores a synchronous result for a step of seq.
func (s *Sequencer) record(seq *sequence, id domain.TransferID, resp domain.Response) {
	s.mu.Lock()
	if s.active[id] == seq {
		delete(s.active, id)
	}
	seq.responses[id] = resp
	s.mu.Unlock()
}

// Deliver records f against the sequence that issued f.ID. Returns false
// if no active sequence owns the id.
func (s *Sequencer) Deliver(f domain.Frame) bool {
	s.mu.Lock()
	seq, ok := s.active[f.ID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.active, f.ID)
	seq.responses[f.ID] = domain.ResponseFromFrame(f)
	fire := s.finishLocked(seq)
	s.mu.Unlock()

	if fire {
		s.fire(seq)
	}
	return true
}

// finishLocked moves seq to Complete if it is ready. Must hold s.mu.
// Returns true exactly once per sequence.
func (s *Sequencer) finishLocked(seq *sequence) bool {
	if seq.state == SequenceComplete || !seq.complete() {
		return false
	}
	seq.state = SequenceComplete
	seq.results = seq.assemble()
	close(seq.done)
	if seq.onComplete != nil {
		delete(s.sequences, seq.id)
	}
	return true
}

// fire runs the completion callback outside the lock.
func (s *Sequencer) fire(seq *sequence) {
	s.logger.Info("sequence complete",
		ports.Uint64("sequence", uint64(seq.id)),
		ports.Int("responses", len(seq.results)),
	)
	if seq.onComplete != nil {
		seq.onComplete(seq.results)
	}
}

// WaitFor blocks until the sequence completes, ctx is done or timeout
// elapses (timeout <= 0 waits without bound). A completed sequence is
// released once its results are returned; after ErrTimeout it stays
// registered so the caller can wait again.
func (s *Sequencer) WaitFor(ctx context.Context, id domain.SequenceID, timeout time.Duration) ([]domain.Response, error) {
	s.mu.Lock()
	seq, ok := s.sequences[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownSequence, id)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-seq.done:
	case <-expired:
		return nil, domain.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.Release(id)
	return seq.results, nil
}

// Release forgets a sequence. Responses for its outstanding ids are then
// treated as unsequenced.
func (s *Sequencer) Release(id domain.SequenceID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[id]
	if !ok {
		return
	}
	delete(s.sequences, id)
	for _, tid := range seq.ids {
		if s.active[tid] == seq {
			delete(s.active, tid)
		}
	}
}

// State returns the state of a registered sequence.
func (s *Sequencer) State(id domain.SequenceID) (SequenceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.sequences[id]
	if !ok {
		return 0, false
	}
	return seq.state, true
}

// Has reports whether an active sequence is waiting for id.
func (s *Sequencer) Has(id domain.TransferID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// Len returns the number of registered sequences.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequences)
}
