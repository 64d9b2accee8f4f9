package app

import (
	"sync"

	"github.com/bft-labs/hostlink/internal/domain"
)

// pendingCall is the bookkeeping for one outstanding single-shot request.
// resp is written exactly once, before done is closed.
type pendingCall struct {
	id   domain.TransferID
	done chan struct{}
	resp domain.Response
}

// filled reports whether the reply has been recorded.
func (p *pendingCall) filled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Registry tracks outstanding single-shot calls keyed by transfer id, so any
// number of calls may be in flight at once.
type Registry struct {
	mu      sync.Mutex
	pending map[domain.TransferID]*pendingCall
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[domain.TransferID]*pendingCall)}
}

// register creates the entry for id. If an entry already existed it is
// replaced and returned so the caller can report the collision.
func (r *Registry) register(id domain.TransferID) (call, replaced *pendingCall) {
	call = &pendingCall{id: id, done: make(chan struct{})}

	r.mu.Lock()
	replaced = r.pending[id]
	r.pending[id] = call
	r.mu.Unlock()

	return call, replaced
}

// Deliver fills and removes the entry for f.ID. Returns false if no call
// is waiting for that id.
func (r *Registry) Deliver(f domain.Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.pending[f.ID]
	if !ok {
		return false
	}
	delete(r.pending, f.ID)
	call.resp = domain.ResponseFromFrame(f)
	close(call.done)
	return true
}

// abandon removes call if it is still registered. It returns false when the
// dispatcher already claimed the entry, in which case call.done is closed.
func (r *Registry) abandon(call *pendingCall) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending[call.id] != call {
		return false
	}
	delete(r.pending, call.id)
	return true
}

// Has reports whether a call is waiting for id.
func (r *Registry) Has(id domain.TransferID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[id]
	return ok
}

// Len returns the number of outstanding calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
