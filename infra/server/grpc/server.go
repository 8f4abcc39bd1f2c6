// Package grpc hosts the gRPC listener. No application RPCs are defined
// here (the spec's capability table is exercised over the WebSocket
// transport in internal/transport/ws); this listener exists so the core
// can be probed with the standard gRPC health protocol and traced the same
// way the rest of the stack is, and so a generated service can be grafted
// on later without re-plumbing interceptors and lifecycle.
package grpc

import (
	"context"
	"net"

	grpcauth "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"

	"github.com/webitel/im-sync-core/config"
)

// authFromMetadata implements the spec §1 auth-triple contract at the gRPC
// boundary: it resolves (user_id, device_id) from incoming metadata and
// leaves the value in context for handlers to read. Token verification
// itself stays with the caller's identity provider, not this core.
func authFromMetadata(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, nil
	}
	if vals := md.Get("x-user-id"); len(vals) > 0 {
		ctx = context.WithValue(ctx, authUserIDKey{}, vals[0])
	}
	if vals := md.Get("x-device-id"); len(vals) > 0 {
		ctx = context.WithValue(ctx, authDeviceIDKey{}, vals[0])
	}
	return ctx, nil
}

type authUserIDKey struct{}
type authDeviceIDKey struct{}

type Server struct {
	cfg    *config.Config
	srv    *grpc.Server
	health *health.Server
}

func NewServer(cfg *config.Config) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcauth.UnaryServerInterceptor(authFromMetadata)),
		grpc.ChainStreamInterceptor(grpcauth.StreamServerInterceptor(authFromMetadata)),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	return &Server{cfg: cfg, srv: srv, health: h}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.GRPC.ListenAddr)
	if err != nil {
		return err
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		_ = s.srv.Serve(ln)
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopped := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.srv.Stop()
		return ctx.Err()
	}
}
