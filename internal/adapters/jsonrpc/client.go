package jsonrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/bft-labs/hostlink/pkg/hostlink"
)

// Client talks to a bridge served by Server.
type Client struct {
	url     string
	http    *http.Client
	retries int
}

// NewClient creates a client for the bridge at url. timeout bounds each
// HTTP round trip and must exceed the device timeouts passed per call.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// SetRetries makes every request retry up to n times, with exponential
// backoff, while the bridge refuses connections. Other failures are never
// retried since the device may already have executed the request.
func (c *Client) SetRetries(n int) {
	c.retries = n
}

// Call runs one named operation on the bridged device.
func (c *Client) Call(ctx context.Context, op string, args hostlink.Args, timeout time.Duration) (ResponseView, error) {
	var reply CallReply
	err := c.do(ctx, "Host.Call", &CallArgs{Op: op, Args: args, TimeoutMS: timeout.Milliseconds()}, &reply)
	return reply.Response, err
}

// Sequence runs ops as one sequence and returns responses in order.
func (c *Client) Sequence(ctx context.Context, ops []CallArgs, timeout time.Duration) ([]ResponseView, error) {
	var reply SequenceReply
	err := c.do(ctx, "Host.Sequence", &SequenceArgs{Ops: ops, TimeoutMS: timeout.Milliseconds()}, &reply)
	return reply.Responses, err
}

// NextNotification waits for the next notification on the bridged device.
func (c *Client) NextNotification(ctx context.Context, timeout time.Duration) (NotificationReply, error) {
	var reply NotificationReply
	err := c.do(ctx, "Host.NextNotification", &NotificationArgs{TimeoutMS: timeout.Milliseconds()}, &reply)
	return reply, err
}

// Stats returns the dispatcher counters of the bridged instance.
func (c *Client) Stats(ctx context.Context) (hostlink.Stats, error) {
	var reply StatsReply
	err := c.do(ctx, "Host.Stats", &StatsArgs{}, &reply)
	return reply.Stats, err
}

func (c *Client) do(ctx context.Context, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer cleanlyClose(resp.Body)

	// RPC errors may come with a non-2xx status; the body decides.
	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			if rpcErr.Code == ErrCodeTimeout {
				return fmt.Errorf("%w: %s", hostlink.ErrTimeout, rpcErr.Message)
			}
			return fmt.Errorf("%s: %w", method, err)
		}
		return fmt.Errorf("%s: status %d: %w", method, resp.StatusCode, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	b := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err == nil || attempt >= c.retries || !errors.Is(err, syscall.ECONNREFUSED) {
			return resp, err
		}
		if werr := b.Wait(ctx); werr != nil {
			return nil, err
		}
	}
}

// cleanlyClose drains and closes a response body so the connection can be
// reused.
func cleanlyClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
