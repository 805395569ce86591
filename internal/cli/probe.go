package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/vietddude/catfeed/internal/feed/health"
)

var probeAddr string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the feed through the gRPC health service",
	Run:   runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeAddr, "addr", "localhost:9090", "gRPC health server address")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := probe(ctx, probeAddr)
	if err != nil {
		slog.Error("Health check failed", "addr", probeAddr, "error", err)
		os.Exit(1)
	}

	out, err := protojson.Marshal(resp)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		os.Exit(2)
	}
}

func probe(ctx context.Context, addr string) (*healthpb.HealthCheckResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	return healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: health.ServiceName})
}
