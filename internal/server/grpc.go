package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "hvac.extractor"

// Health exposes the daemon's readiness over the standard gRPC health
// protocol, re-evaluating a readiness probe periodically.
type Health struct {
	server *health.Server
	probe  func(ctx context.Context) error
	logger *slog.Logger
}

// NewGRPCServer returns a gRPC server with health and reflection registered.
func NewGRPCServer(probe func(ctx context.Context) error, logger *slog.Logger) (*grpc.Server, *Health) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	h := &Health{server: health.NewServer(), probe: probe, logger: logger}
	healthpb.RegisterHealthServer(srv, h.server)
	reflection.Register(srv)
	h.set(healthpb.HealthCheckResponse_SERVING)
	return srv, h
}

// Watch re-runs the probe every interval until ctx ends, then reports
// NOT_SERVING.
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	if h.probe == nil || interval <= 0 {
		<-ctx.Done()
		h.Shutdown()
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}

// Check runs the probe once and updates the serving status.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.probe != nil {
		if err := h.probe(ctx); err != nil {
			h.logger.Warn("grpc.health.not_serving", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

func (h *Health) Shutdown() {
	h.server.Shutdown()
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
