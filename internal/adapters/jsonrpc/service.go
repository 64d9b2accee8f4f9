package jsonrpc

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/bft-labs/hostlink/internal/ports"
	"github.com/bft-labs/hostlink/pkg/hostlink"
)

// ErrCodeTimeout is the JSON-RPC error code for hostlink.ErrTimeout.
const ErrCodeTimeout json2.ErrorCode = -32001

// Host is the subset of *hostlink.Hostlink exposed over JSON-RPC.
type Host interface {
	Call(ctx context.Context, req hostlink.Request, timeout time.Duration) (hostlink.Response, error)
	Step(req hostlink.Request) hostlink.Step
	Invoke(ctx context.Context, steps []hostlink.Step, timeout time.Duration) ([]hostlink.Response, error)
	NextNotification(ctx context.Context, timeout time.Duration) (hostlink.Frame, error)
	Stats() hostlink.Stats
}

// CallArgs names one operation and its arguments.
type CallArgs struct {
	Op        string        `json:"op"`
	Args      hostlink.Args `json:"args"`
	TimeoutMS int64         `json:"timeout_ms,omitempty"`
}

// ResponseView is the wire form of hostlink.Response.
type ResponseView struct {
	ID      uint16 `json:"id" yaml:"id"`
	Command string `json:"command" yaml:"command"`
	Opcode  string `json:"opcode" yaml:"opcode"`
	Result  string `json:"result" yaml:"result"`
	Payload string `json:"payload" yaml:"payload"`
	OK      bool   `json:"ok" yaml:"ok"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewResponseView converts a response for the wire.
func NewResponseView(r hostlink.Response) ResponseView {
	v := ResponseView{
		ID:      uint16(r.ID),
		Command: r.Command.String(),
		Opcode:  r.Opcode.String(),
		Result:  r.Result.String(),
		Payload: hex.EncodeToString(r.Payload),
		OK:      r.OK(),
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// CallReply is the result of Host.Call.
type CallReply struct {
	Response ResponseView `json:"response"`
}

// SequenceArgs lists the operations of one sequence.
type SequenceArgs struct {
	Ops       []CallArgs `json:"ops"`
	TimeoutMS int64      `json:"timeout_ms,omitempty"`
}

// SequenceReply holds the responses in submission order.
type SequenceReply struct {
	Responses []ResponseView `json:"responses"`
}

// NotificationArgs bounds the wait of Host.NextNotification.
type NotificationArgs struct {
	TimeoutMS int64 `json:"timeout_ms,omitempty"`
}

// NotificationReply is the wire form of a notification frame.
type NotificationReply struct {
	Command string `json:"command" yaml:"command"`
	Payload string `json:"payload" yaml:"payload"`
}

// StatsArgs is empty.
type StatsArgs struct{}

// StatsReply carries the dispatcher counters.
type StatsReply struct {
	Stats hostlink.Stats `json:"stats"`
}

// HostService implements the "Host" JSON-RPC service.
type HostService struct {
	host   Host
	logger ports.Logger
}

// Call runs one named operation.
func (s *HostService) Call(r *http.Request, args *CallArgs, reply *CallReply) error {
	req, err := buildRequest(*args)
	if err != nil {
		return err
	}
	resp, err := s.host.Call(r.Context(), req, millis(args.TimeoutMS))
	if err != nil {
		return s.rpcError("Host.Call", err)
	}
	reply.Response = NewResponseView(resp)
	return nil
}

// Sequence runs the operations in order and waits for every response.
func (s *HostService) Sequence(r *http.Request, args *SequenceArgs, reply *SequenceReply) error {
	steps := make([]hostlink.Step, 0, len(args.Ops))
	for _, op := range args.Ops {
		req, err := buildRequest(op)
		if err != nil {
			return err
		}
		steps = append(steps, s.host.Step(req))
	}

	resps, err := s.host.Invoke(r.Context(), steps, millis(args.TimeoutMS))
	if err != nil {
		return s.rpcError("Host.Sequence", err)
	}
	reply.Responses = make([]ResponseView, len(resps))
	for i, resp := range resps {
		reply.Responses[i] = NewResponseView(resp)
	}
	return nil
}

// NextNotification waits for the next notification.
func (s *HostService) NextNotification(r *http.Request, args *NotificationArgs, reply *NotificationReply) error {
	f, err := s.host.NextNotification(r.Context(), millis(args.TimeoutMS))
	if err != nil {
		return s.rpcError("Host.NextNotification", err)
	}
	reply.Command = f.Command.String()
	reply.Payload = hex.EncodeToString(f.Payload)
	return nil
}

// Stats returns the dispatcher counters.
func (s *HostService) Stats(r *http.Request, args *StatsArgs, reply *StatsReply) error {
	reply.Stats = s.host.Stats()
	return nil
}

func (s *HostService) rpcError(method string, err error) error {
	code := json2.E_SERVER
	if errors.Is(err, hostlink.ErrTimeout) {
		code = ErrCodeTimeout
	}
	s.logger.Warn("rpc failed", ports.String("method", method), ports.Err(err))
	return &json2.Error{Code: code, Message: err.Error()}
}

func buildRequest(args CallArgs) (hostlink.Request, error) {
	op, err := hostlink.LookupOperation(args.Op)
	if err != nil {
		return hostlink.Request{}, &json2.Error{Code: json2.E_BAD_PARAMS, Message: err.Error()}
	}
	req, err := op.Request(args.Args)
	if err != nil {
		return hostlink.Request{}, &json2.Error{Code: json2.E_BAD_PARAMS, Message: err.Error()}
	}
	return req, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// NewHandler returns the JSON-RPC 2.0 endpoint serving host.
func NewHandler(host Host, logger ports.Logger) (http.Handler, error) {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&HostService{host: host, logger: logger}, "Host"); err != nil {
		return nil, err
	}
	return s, nil
}
