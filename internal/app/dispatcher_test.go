package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
)

// recordingHandler collects unsequenced frames.
type recordingHandler struct {
	mu     sync.Mutex
	frames []domain.Frame
}

func (h *recordingHandler) OnUnsequenced(f domain.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, f)
}

func (h *recordingHandler) Frames() []domain.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Frame{}, h.frames...)
}

func TestDispatcher_UnsequencedFramesReachHandler(t *testing.T) {
	ft := newFakeTransport()
	h := &recordingHandler{}
	c, err := NewClient(ClientConfig{}, ft, &mockLogger{}, nil, h)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	ft.deliver(domain.Frame{ID: 4242, Command: domain.CmdI2CRead, Result: domain.ResultNack})

	waitUntil(t, "unsequenced handler", func() bool { return len(h.Frames()) == 1 })
	if f := h.Frames()[0]; f.ID != 4242 || f.Result != domain.ResultNack {
		t.Errorf("handler got %+v", f)
	}
	if st := c.Stats(); st.Frames != 1 || st.Unsequenced != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestDispatcher_PanicDoesNotStopDispatch(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	id, _ := c.Submit([]Step{c.Step(domain.Request{Command: domain.CmdI2CRead})}, func([]domain.Response) {
		panic("callback failure")
	})
	ft.reply(ft.sentIDs()[0], domain.CmdI2CRead, nil)

	waitUntil(t, "recovered panic", func() bool { return c.Stats().Panics == 1 })

	// The sequence completed and was released before its callback failed.
	if _, ok := c.sequences.State(id); ok {
		t.Error("sequence still registered after its callback panicked")
	}

	// Later frames are still routed.
	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), domain.Request{Command: domain.CmdI2CRead}, time.Second)
		done <- err
	}()
	for len(ft.sentIDs()) < 2 {
		time.Sleep(time.Millisecond)
	}
	ft.reply(ft.sentIDs()[1], domain.CmdI2CRead, nil)
	if err := <-done; err != nil {
		t.Errorf("Call() after panic error = %v", err)
	}
	if c.State() != StateRunning {
		t.Errorf("State() = %v, want Running", c.State())
	}
}

func TestDispatcher_DeliveryFromManyGoroutines(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ft.deliver(domain.Frame{ID: domain.NotificationID, Command: domain.CmdNotification})
		}()
	}
	wg.Wait()

	waitUntil(t, "all frames dispatched", func() bool { return c.Stats().Frames == n })
	if st := c.Stats(); st.Notifications != n || st.Backlog != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}
