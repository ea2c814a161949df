package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
)

// GracefulServer wraps a gRPC server with graceful shutdown support.
type GracefulServer struct {
	grpcServer *grpc.Server
	logger     Logger
	address    string

	mu         sync.Mutex
	listener   net.Listener
	isShutdown bool
}

// NewGracefulServer creates a server exposing InvokeService on address.
// With no options the ServerOptions interceptor set is installed.
func NewGracefulServer(service InvokeServiceServer, address string, logger Logger, opts ...grpc.ServerOption) *GracefulServer {
	if logger == nil {
		logger = nopLogger{}
	}
	if len(opts) == 0 {
		opts = ServerOptions(logger)
	}

	grpcServer := grpc.NewServer(opts...)
	RegisterInvokeServiceServer(grpcServer, service)

	return &GracefulServer{
		grpcServer: grpcServer,
		logger:     logger,
		address:    address,
	}
}

// Listen binds the listening socket. Start calls it when needed.
func (s *GracefulServer) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis
	return lis.Addr(), nil
}

// Start serves until ctx is cancelled, then stops gracefully.
// It returns nil after a cancellation-driven shutdown.
func (s *GracefulServer) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.logger.Info("grpc_server_started", "address", addr.String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("grpc_graceful_shutdown_initiated", "reason", ctx.Err().Error())
		s.GracefulStop()
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// GracefulStop stops accepting connections and waits for in-flight calls.
func (s *GracefulServer) GracefulStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isShutdown {
		return
	}
	s.isShutdown = true

	s.grpcServer.GracefulStop()
	s.logger.Info("grpc_graceful_stop_completed")
}

// ShutdownWithTimeout stops gracefully, forcing a hard stop after timeout.
func (s *GracefulServer) ShutdownWithTimeout(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("grpc_graceful_shutdown_timeout", "timeout_ms", timeout.Milliseconds())
		s.grpcServer.Stop()
	}
}

// Address returns the configured address.
func (s *GracefulServer) Address() string {
	return s.address
}
