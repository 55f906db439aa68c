package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/destined/internal/config"
)

// NewGRPCServer creates a gRPC server and registers all provided services.
func NewGRPCServer(registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer()

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)
	return grpcServer
}

// StartGRPCServer serves on the configured address until ctx is done.
func StartGRPCServer(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}

// HealthRegistrar exposes grpc.health.v1 for the process.
// The liking and friend-request services report under their own names.
type HealthRegistrar struct {
	Health *health.Server
}

func NewHealthRegistrar() *HealthRegistrar {
	return &HealthRegistrar{Health: health.NewServer()}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.Health)
	for _, name := range []string{"", "destined.liking", "destined.friendrequest", "destined.profilematch"} {
		h.Health.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
}

// Shutdown flips every service to NOT_SERVING.
func (h *HealthRegistrar) Shutdown() {
	h.Health.Shutdown()
}
