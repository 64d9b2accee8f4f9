package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/hostlink/internal/domain"
)

func threeReads(c *Client) []Step {
	return []Step{
		c.Step(domain.Request{Command: domain.CmdI2CWrite}),
		c.Step(domain.Request{Command: domain.CmdI2CWriteNonStop}),
		c.Step(domain.Request{Command: domain.CmdI2CRead}),
	}
}

func TestSequence_ResponsesReorderedBySubmission(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})
	for i := 0; i < 4; i++ {
		c.alloc.Next()
	}

	id, err := c.Submit(threeReads(c), nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	ids := ft.sentIDs()
	if len(ids) != 3 || ids[0] != 5 || ids[1] != 6 || ids[2] != 7 {
		t.Fatalf("sent ids = %v, want [5 6 7]", ids)
	}
	if st, _ := c.sequences.State(id); st != SequenceAwaiting {
		t.Errorf("State() = %v, want AwaitingResponses", st)
	}

	ft.reply(7, domain.CmdI2CRead, []byte{7})
	ft.reply(5, domain.CmdI2CWrite, []byte{5})
	ft.reply(6, domain.CmdI2CWriteNonStop, []byte{6})

	resps, err := c.WaitFor(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if len(resps) != 3 {
		t.Fatalf("WaitFor() returned %d responses, want 3", len(resps))
	}
	for i, want := range []domain.TransferID{5, 6, 7} {
		if resps[i].ID != want || resps[i].Payload[0] != byte(want) {
			t.Errorf("response %d = %+v, want the reply for id %d", i, resps[i], want)
		}
	}
	if c.Stats().SequenceSteps != 3 {
		t.Errorf("SequenceSteps = %d, want 3", c.Stats().SequenceSteps)
	}
}

func TestSequence_EmptyCompletesImmediately(t *testing.T) {
	c, _ := newTestClient(t, ClientConfig{})

	var got []domain.Response
	called := false
	id, _ := c.Submit(nil, func(r []domain.Response) {
		called = true
		got = r
	})
	if !called {
		t.Fatal("onComplete not called for an empty sequence")
	}
	if len(got) != 0 {
		t.Errorf("onComplete got %d responses, want 0", len(got))
	}

	if _, err := c.WaitFor(context.Background(), id, 10*time.Millisecond); !errors.Is(err, domain.ErrUnknownSequence) {
		t.Errorf("WaitFor() error = %v, want ErrUnknownSequence", err)
	}
}

func TestSequence_EmptyWithoutCallback(t *testing.T) {
	c, _ := newTestClient(t, ClientConfig{})

	id, _ := c.Submit(nil, nil)
	resps, err := c.WaitFor(context.Background(), id, 10*time.Millisecond)
	if err != nil || len(resps) != 0 {
		t.Errorf("WaitFor() = %v, %v, want empty and nil", resps, err)
	}
}

func TestSequence_RejectedAndFailedSteps(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})
	ft.ack = func(id domain.TransferID, req domain.Request) (domain.Ack, error) {
		switch req.Command {
		case domain.CmdI2CWriteNonStop:
			return domain.Ack{Opcode: domain.OpcodeInvalidParameters}, nil
		case domain.CmdI2CRead:
			return domain.Ack{}, errLinkDown
		}
		return domain.Ack{}, nil
	}

	id, _ := c.Submit(threeReads(c), nil)
	ids := ft.sentIDs()
	ft.reply(ids[0], domain.CmdI2CWrite, nil)

	resps, err := c.WaitFor(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if !resps[0].OK() {
		t.Errorf("step 0 = %+v, want success", resps[0])
	}
	if resps[1].Opcode != domain.OpcodeInvalidParameters || resps[1].Command != domain.CmdI2CWriteNonStop {
		t.Errorf("step 1 = %+v, want the rejecting ack", resps[1])
	}
	if !errors.Is(resps[2].Err, errLinkDown) || !resps[2].Rejected() {
		t.Errorf("step 2 = %+v, want the send error", resps[2])
	}
}

func TestSequence_WaitForTimeoutThenRetry(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	id, _ := c.Submit([]Step{c.Step(domain.Request{Command: domain.CmdI2CRead})}, nil)

	if _, err := c.WaitFor(context.Background(), id, 20*time.Millisecond); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("WaitFor() error = %v, want ErrTimeout", err)
	}
	if st, ok := c.sequences.State(id); !ok || st != SequenceAwaiting {
		t.Errorf("State() = %v, %v after timeout, want AwaitingResponses", st, ok)
	}

	ft.reply(ft.sentIDs()[0], domain.CmdI2CRead, []byte{9})

	resps, err := c.WaitFor(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("second WaitFor() error = %v", err)
	}
	if resps[0].Payload[0] != 9 {
		t.Errorf("payload = %v, want [9]", resps[0].Payload)
	}

	if _, err := c.WaitFor(context.Background(), id, time.Millisecond); !errors.Is(err, domain.ErrUnknownSequence) {
		t.Errorf("WaitFor() after results error = %v, want ErrUnknownSequence", err)
	}
}

func TestSequence_OnCompleteCallback(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	done := make(chan []domain.Response, 1)
	id, _ := c.Submit(threeReads(c), func(r []domain.Response) { done <- r })
	for _, tid := range ft.sentIDs() {
		ft.reply(tid, domain.CmdI2CRead, nil)
	}

	select {
	case r := <-done:
		if len(r) != 3 {
			t.Errorf("onComplete got %d responses, want 3", len(r))
		}
	case <-time.After(time.Second):
		t.Fatal("onComplete not called")
	}

	if _, seqs := c.Outstanding(); seqs != 0 {
		t.Errorf("Outstanding() sequences = %d after onComplete, want 0", seqs)
	}
	if _, ok := c.sequences.State(id); ok {
		t.Error("sequence still registered after onComplete")
	}
}

func TestSequence_WaitStartedBeforeCallbackCompletion(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	called := make(chan struct{})
	id, _ := c.Submit(threeReads(c), func([]domain.Response) { close(called) })

	type result struct {
		resps []domain.Response
		err   error
	}
	waited := make(chan result, 1)
	go func() {
		r, err := c.WaitFor(context.Background(), id, time.Second)
		waited <- result{r, err}
	}()
	ids := ft.sentIDs()
	ft.reply(ids[0], domain.CmdI2CRead, nil)
	ft.reply(ids[1], domain.CmdI2CRead, nil)
	time.Sleep(20 * time.Millisecond)
	ft.reply(ids[2], domain.CmdI2CRead, nil)
	<-called

	r := <-waited
	if r.err != nil || len(r.resps) != 3 {
		t.Errorf("WaitFor() = %d responses, %v, want 3 and nil", len(r.resps), r.err)
	}
}

func TestSequence_ReleaseDropsLateResponses(t *testing.T) {
	c, ft := newTestClient(t, ClientConfig{})

	id, _ := c.Submit(threeReads(c), nil)
	c.Release(id)

	for _, tid := range ft.sentIDs() {
		ft.reply(tid, domain.CmdI2CRead, nil)
	}
	waitUntil(t, "unsequenced frames", func() bool { return c.Stats().Unsequenced == 3 })

	if _, err := c.WaitFor(context.Background(), id, time.Millisecond); !errors.Is(err, domain.ErrUnknownSequence) {
		t.Errorf("WaitFor() error = %v, want ErrUnknownSequence", err)
	}
}

func TestSequence_InvokeTimesOutAndReleases(t *testing.T) {
	c, _ := newTestClient(t, ClientConfig{})

	_, err := c.Invoke(context.Background(), threeReads(c), 20*time.Millisecond)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Invoke() error = %v, want ErrTimeout", err)
	}
	if _, seqs := c.Outstanding(); seqs != 0 {
		t.Errorf("Outstanding() sequences = %d after failed Invoke, want 0", seqs)
	}
}

func TestSequenceState_String(t *testing.T) {
	tests := []struct {
		state SequenceState
		want  string
	}{
		{SequenceSubmitting, "Submitting"},
		{SequenceAwaiting, "AwaitingResponses"},
		{SequenceComplete, "Complete"},
		{SequenceState(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("SequenceState(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
