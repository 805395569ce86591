package health

import (
	"context"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/state"
)

// GRPCServer serves the standard gRPC health protocol for the feed.
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer creates a server reporting SERVING for the feed service.
func NewGRPCServer() *GRPCServer {
	srv := grpc.NewServer()
	h := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{server: srv, health: h}
}

// Follow keeps the serving status in line with the feed: NOT_SERVING once the
// state holder closes. Blocks until then or until ctx is done.
func (g *GRPCServer) Follow(ctx context.Context, s *state.Latest[domain.Result]) {
	for range s.Watch(ctx) {
	}
	if s.Closed() {
		g.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Serve accepts connections on lis until Stop.
func (g *GRPCServer) Serve(lis net.Listener) error {
	return g.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
