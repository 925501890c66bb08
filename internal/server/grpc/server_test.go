package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProbe(t *testing.T) {
	ctx := context.Background()
	hs := NewHealth()

	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	status := Probe(ctx, pingerFunc(func(context.Context) error { return nil }), hs)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	status = Probe(ctx, pingerFunc(func(context.Context) error { return errors.New("down") }), hs)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
