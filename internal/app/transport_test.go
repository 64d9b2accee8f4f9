package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
)

// sent records one Transport.Send call.
type sent struct {
	id  domain.TransferID
	req domain.Request
}

// fakeTransport is a Transport whose inbound frames are delivered by the
// test. ack, if set, decides the immediate acknowledgement of each send.
type fakeTransport struct {
	mu      sync.Mutex
	onFrame func(domain.Frame)
	ack     func(id domain.TransferID, req domain.Request) (domain.Ack, error)
	sends   []sent
	opens   int
	closes  int
	openErr error
	onOpen  func()

	sendCh chan sent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sendCh: make(chan sent, 4096)}
}

func (f *fakeTransport) Open(ctx context.Context) error {
	f.mu.Lock()
	f.opens++
	err, hook := f.openErr, f.onOpen
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) Send(id domain.TransferID, req domain.Request) (domain.Ack, error) {
	f.mu.Lock()
	ack := f.ack
	f.sends = append(f.sends, sent{id, req})
	f.mu.Unlock()

	select {
	case f.sendCh <- sent{id, req}:
	default:
	}
	if ack == nil {
		return domain.Ack{}, nil
	}
	return ack(id, req)
}

func (f *fakeTransport) OnFrame(fn func(domain.Frame)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = fn
}

// deliver hands fr to the client as the transport's delivery goroutine would.
func (f *fakeTransport) deliver(fr domain.Frame) {
	f.mu.Lock()
	fn := f.onFrame
	f.mu.Unlock()
	fn(fr)
}

// reply delivers a successful response echoing id.
func (f *fakeTransport) reply(id domain.TransferID, cmd domain.Command, payload []byte) {
	f.deliver(domain.Frame{ID: id, Command: cmd, Result: domain.ResultSuccess, Payload: payload})
}

// nextSend waits for the next Send call.
func (f *fakeTransport) nextSend(t *testing.T) sent {
	t.Helper()
	select {
	case s := <-f.sendCh:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no request was sent")
		return sent{}
	}
}

func (f *fakeTransport) sentIDs() []domain.TransferID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]domain.TransferID, len(f.sends))
	for i, s := range f.sends {
		ids[i] = s.id
	}
	return ids
}

// echoDevice answers every accepted request from its own goroutine after a
// random delay, echoing the request's []byte params as the payload. Replies
// therefore arrive from many goroutines in arbitrary order.
func echoDevice(f *fakeTransport, maxDelay time.Duration) {
	f.mu.Lock()
	f.ack = func(id domain.TransferID, req domain.Request) (domain.Ack, error) {
		tag, _ := req.Params.([]byte)
		go func() {
			if maxDelay > 0 {
				time.Sleep(rand.N(maxDelay))
			}
			f.reply(id, req.Command, tag)
		}()
		return domain.Ack{}, nil
	}
	f.mu.Unlock()
}

var errLinkDown = errors.New("link down")

// newTestClient returns a running client over a fresh fake transport.
func newTestClient(t *testing.T, config ClientConfig) (*Client, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c, err := NewClient(config, ft, &mockLogger{}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })
	return c, ft
}

// waitUntil polls cond until it holds or a second passes.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
