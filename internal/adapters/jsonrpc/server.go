package jsonrpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bft-labs/hostlink/internal/ports"
)

// Path is the URL path of the JSON-RPC endpoint.
const Path = "/rpc"

const shutdownTimeout = 5 * time.Second

// Server exposes one Host on an HTTP listener.
type Server struct {
	addr    string
	handler http.Handler
	logger  ports.Logger
}

// NewServer creates a bridge for host listening on addr.
func NewServer(addr string, host Host, logger ports.Logger) (*Server, error) {
	h, err := NewHandler(host, logger)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return &Server{addr: addr, handler: mux, logger: logger}, nil
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Info("json-rpc bridge listening", ports.String("addr", ln.Addr().String()), ports.String("path", Path))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("json-rpc bridge stopped")
	return nil
}
