package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"live-transcript-service/internal/ingest"
	"live-transcript-service/internal/observability/metrics"
	"live-transcript-service/internal/service/transcript"
	"live-transcript-service/internal/session"
)

func startServer(t *testing.T) (*Server, grpc_health_v1.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New(metrics.DefaultMetrics)
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		srv.Shutdown()
	})
	return srv, grpc_health_v1.NewHealthClient(conn)
}

func check(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServingStatus(t *testing.T) {
	tests := []struct {
		state    ingest.State
		expected grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{ingest.StateIdle, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{ingest.StateConnecting, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{ingest.StateOpen, grpc_health_v1.HealthCheckResponse_SERVING},
		{ingest.StateClosed, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{ingest.StateError, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ServingStatus(tt.state), tt.state.String())
	}
}

func TestHealth_InitialStatuses(t *testing.T) {
	_, client := startServer(t)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, IngestService))
}

func TestHealth_WatchFollowsIngestState(t *testing.T) {
	srv, client := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, &grpc_health_v1.HealthCheckRequest{Service: IngestService})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, first.GetStatus())

	srv.SetIngestState(ingest.StateOpen)
	next, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, next.GetStatus())
}

func TestTrack_MockStreamRunsToClosed(t *testing.T) {
	srv, client := startServer(t)
	sess := session.New(transcript.Config{})
	ing := ingest.New(sess, ingest.NewMockSource(ingest.MockConfig{}))
	defer ing.Close()

	srv.Track(ing)
	require.NoError(t, ing.Connect(context.Background()))
	require.Eventually(t, func() bool { return ing.State() == ingest.StateClosed }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, IngestService))
}
