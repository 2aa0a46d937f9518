package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/venuebook/libs/grpcx"
	"github.com/md-rashed-zaman/venuebook/libs/runtime"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/app"
	"google.golang.org/grpc"
)

// newGRPC serves the standard health service. Its status follows readiness,
// so gRPC probes and /readyz always agree.
func newGRPC(cfg app.Config, logger *slog.Logger, readiness *runtime.Readiness) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return nil, nil, fmt.Errorf("grpc listen: %w", err)
	}
	srv, hs := grpcx.NewServer(logger)
	readiness.OnChange(func(ready bool) {
		grpcx.SetServing(hs, ready, cfg.ServiceName)
	})
	return srv, lis, nil
}
