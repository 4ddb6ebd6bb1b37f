// Package grpcapi exposes the ingest connection over the standard gRPC
// health protocol.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"live-transcript-service/internal/ingest"
	"live-transcript-service/internal/observability"
	"live-transcript-service/internal/observability/metrics"
)

// IngestService is the health service name that tracks the stream
// connection. The empty service name reports the process itself.
const IngestService = "live.transcript.Ingest"

// Server is a gRPC server carrying health and reflection services.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a server. The ingest service starts NOT_SERVING.
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(IngestService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	return &Server{grpc: g, health: hs}
}

// ServingStatus maps a connection state to a health status. Only an open
// stream is serving.
func ServingStatus(s ingest.State) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if s == ingest.StateOpen {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

// Track makes the ingest service status follow ing's connection state.
func (s *Server) Track(ing *ingest.Ingestor) {
	s.SetIngestState(ing.State())
	ing.OnStateChange(s.SetIngestState)
}

// SetIngestState publishes the status for state to health checkers and
// watchers.
func (s *Server) SetIngestState(state ingest.State) {
	s.health.SetServingStatus(IngestService, ServingStatus(state))
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("component", "grpc").Str("addr", lis.Addr().String()).Msg("Starting gRPC health server")
	return s.grpc.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and stops gracefully.
func (s *Server) Shutdown() {
	log.Info().Str("component", "grpc").Msg("Shutting down gRPC server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
