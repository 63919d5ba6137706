package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestHealthReporter_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("Serving", func(t *testing.T) {
		store := new(MockPinger)
		store.On("Ping", mock.Anything).Return(nil)
		h := NewHealthReporter(store, time.Second)

		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Check(ctx))

		res, err := h.Server().Check(ctx, &healthpb.HealthCheckRequest{Service: LedgerService})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)
	})

	t.Run("DatabaseDown", func(t *testing.T) {
		store := new(MockPinger)
		store.On("Ping", mock.Anything).Return(errors.New("connection refused"))
		h := NewHealthReporter(store, time.Second)

		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Check(ctx))

		res, err := h.Server().Check(ctx, &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.Status)
	})
}

func TestHealthReporter_RunStopsOnCancel(t *testing.T) {
	store := new(MockPinger)
	store.On("Ping", mock.Anything).Return(nil)
	h := NewHealthReporter(store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewServer_RegistersHealth(t *testing.T) {
	store := new(MockPinger)
	s := NewServer(NewHealthReporter(store, time.Second))
	defer s.Stop()

	_, ok := s.GetServiceInfo()[healthpb.Health_ServiceDesc.ServiceName]
	assert.True(t, ok)
}
