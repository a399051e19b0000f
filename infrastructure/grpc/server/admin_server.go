// Package server exposes the operator side of the relay over gRPC: the
// standard health service for load balancers and reflection for tooling such as
// grpcurl. Everything except health checks requires a bearer token.
package server

import (
	"chat-relay/auth"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry reported for the relay itself, next to
// the empty name that covers the whole server.
const ServiceName = "chat.relay"

type AdminServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewAdminServer(log *slog.Logger, authenticator auth.IAuthenticator) *AdminServer {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(authenticator)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(authenticator)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &AdminServer{log: log, server: server, health: healthServer}
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *AdminServer) Serve(lis net.Listener) error {
	s.log.Info("gRPC admin server listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// Shutdown flips health to NOT_SERVING first so load balancers stop routing
// traffic, then drains in-flight calls.
func (s *AdminServer) Shutdown() {
	s.health.Shutdown()
	s.server.GracefulStop()
	s.log.Info("gRPC admin server stopped")
}
