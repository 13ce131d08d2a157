// Package health exposes the standard gRPC health service so orchestrators
// can tell whether the gateway session is up.
package health

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported alongside the overall ("") status.
const Service = "coolbot"

// Server wraps a gRPC server carrying only the health service.
type Server struct {
	addr   string
	srv    *grpc.Server
	health *health.Server

	mu  sync.Mutex
	lis net.Listener
}

// New creates a server for addr. It starts out NOT_SERVING.
func New(addr string) *Server {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{addr: addr, srv: srv, health: hs}
	s.SetNotServing()
	return s
}

// Listen binds the address. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("health: listen on %s: %w", s.addr, err)
	}
	s.lis = lis
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.addr
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[health] gRPC health server listening on %s", lis.Addr())
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return fmt.Errorf("health: serve: %w", err)
	}
}

// SetServing marks the bot healthy.
func (s *Server) SetServing() {
	s.set(healthpb.HealthCheckResponse_SERVING)
}

// SetNotServing marks the bot unhealthy.
func (s *Server) SetNotServing() {
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}
