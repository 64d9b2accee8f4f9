package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
)

// Notifications retains the most recent unsolicited frame until a consumer
// takes it. Older unconsumed notifications are overwritten.
type Notifications struct {
	mu       sync.Mutex
	latest   domain.Frame
	seen     bool
	unread   bool
	arrived  chan struct{}
	replaced uint64
}

// NewNotifications creates an empty notification channel.
func NewNotifications() *Notifications {
	return &Notifications{arrived: make(chan struct{})}
}

// Publish stores f as the latest notification and wakes every waiter.
func (n *Notifications) Publish(f domain.Frame) {
	n.mu.Lock()
	if n.unread {
		n.replaced++
	}
	n.latest = f
	n.seen = true
	n.unread = true
	close(n.arrived)
	n.arrived = make(chan struct{})
	n.mu.Unlock()
}

// Next returns the retained notification if it has not been consumed yet,
// otherwise waits for the next one. timeout <= 0 waits without bound.
func (n *Notifications) Next(ctx context.Context, timeout time.Duration) (domain.Frame, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		n.mu.Lock()
		if n.unread {
			f := n.latest
			n.unread = false
			n.mu.Unlock()
			return f, nil
		}
		arrived := n.arrived
		n.mu.Unlock()

		select {
		case <-arrived:
		case <-expired:
			return domain.Frame{}, domain.ErrTimeout
		case <-ctx.Done():
			return domain.Frame{}, ctx.Err()
		}
	}
}

// Latest returns the most recent notification without consuming it.
func (n *Notifications) Latest() (domain.Frame, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest, n.seen
}

// Overwritten returns how many notifications were replaced before anyone
// consumed them.
func (n *Notifications) Overwritten() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.replaced
}
