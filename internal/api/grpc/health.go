package grpc

import (
	"context"
	"time"

	"rental-ledger-backend/internal/api/grpc/interceptor"
	"rental-ledger-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// LedgerService is the name health checks report the ledger under.
const LedgerService = "rental.ledger.v1.Ledger"

// Pinger is satisfied by the repository store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in line with the database.
type HealthReporter struct {
	store    Pinger
	server   *health.Server
	interval time.Duration
	timeout  time.Duration
}

func NewHealthReporter(store Pinger, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthReporter{
		store:    store,
		server:   health.NewServer(),
		interval: interval,
		timeout:  interval / 2,
	}
}

func (h *HealthReporter) Server() *health.Server {
	return h.server
}

// Check pings the store once and publishes the result for both the overall
// server and the ledger service.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		logger.Warn("Database health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(LedgerService, status)
	return status
}

// Run checks on every tick until ctx ends, then marks everything as not
// serving.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds the gRPC server exposing health and reflection.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	healthpb.RegisterHealthServer(s, reporter.Server())
	reflection.Register(s)
	return s
}
