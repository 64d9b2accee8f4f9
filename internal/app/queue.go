package app

import (
	"context"
	"sync"

	"github.com/bft-labs/hostlink/internal/domain"
)

// frameQueue is the hand-off between the transport's delivery goroutine(s)
// and the single dispatcher. It is unbounded so Push never blocks. A new
// queue is closed until Open.
type frameQueue struct {
	mu     sync.Mutex
	items  []domain.Frame
	ready  chan struct{}
	closed bool
}

func newFrameQueue(hint int) *frameQueue {
	if hint < 1 {
		hint = 64
	}
	return &frameQueue{
		items:  make([]domain.Frame, 0, hint),
		ready:  make(chan struct{}, 1),
		closed: true,
	}
}

// Push appends f. Frames pushed while the queue is closed are discarded.
func (q *frameQueue) Push(f domain.Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, f)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain blocks until at least one frame is queued, then returns every
// queued frame in arrival order. buf is reused for the result.
// Returns ctx.Err() once ctx is done and the queue is empty.
func (q *frameQueue) Drain(ctx context.Context, buf []domain.Frame) ([]domain.Frame, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			buf = append(buf[:0], q.items...)
			clear(q.items)
			q.items = q.items[:0]
			q.mu.Unlock()
			return buf, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return buf[:0], ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of frames waiting for the dispatcher.
func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting frames and discards the backlog.
func (q *frameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	clear(q.items)
	q.items = q.items[:0]
	q.mu.Unlock()
}

// Open accepts frames again after Close.
func (q *frameQueue) Open() {
	q.mu.Lock()
	q.closed = false
	q.mu.Unlock()
}
