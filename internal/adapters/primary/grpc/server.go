package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger : sonde du backend (Gateway.Ping).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server expose le health check standard (K8s, grpcurl) et suit l'état du backend.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	pinger  Pinger
	service string
}

// NewServer : reflection uniquement hors prod.
func NewServer(service string, pinger Pinger, reflect bool) *Server {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()), // Auto-tracing des requêtes
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)

	if reflect {
		reflection.Register(grpcServer)
		slog.Info("🔍 gRPC Reflection enabled")
	}

	return &Server{grpc: grpcServer, health: healthServer, pinger: pinger, service: service}
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Info("🚀 gRPC Server listening", "address", lis.Addr())
	return s.grpc.Serve(lis)
}

// Watch sonde le backend toutes les interval et met à jour le statut du service.
// Bloque jusqu'à l'annulation de ctx.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	if s.pinger == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.checkBackend(ctx, interval)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) checkBackend(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.pinger.Ping(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		slog.Warn("⚠️ backend ping failed", "error", err)
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(s.service, status)
}

// Stop : arrêt propre, forcé après le délai de ctx.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("✅ gRPC Server stopped gracefully")
	case <-ctx.Done():
		slog.Warn("⏳ Timeout reached, forcing server stop")
		s.grpc.Stop()
	}
}
