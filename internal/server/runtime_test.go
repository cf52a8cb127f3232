package server

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"inferd/internal/backend"
	"inferd/internal/grpcapi"
	"inferd/internal/health"
	pb "inferd/pkg/inferencepb"
)

const serviceName = "inference.Inferencer"

func newTestRuntime(t *testing.T, b backend.Backend, cfg Config) *Runtime {
	t.Helper()
	cfg.Host = "127.0.0.1"
	cfg.Port = -1
	rt := New(cfg, grpcapi.NewServer(b))
	t.Cleanup(rt.Shutdown)
	return rt
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRuntimeStartServes(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(0), Config{})
	assert.Equal(t, StateInitializing, rt.State())
	assert.Equal(t, health.Unknown, rt.Health().Check(serviceName))
	assert.Empty(t, rt.Addr())

	require.NoError(t, rt.Start())
	assert.Equal(t, StateServing, rt.State())
	assert.True(t, rt.Ready())
	assert.Equal(t, health.Serving, rt.Health().Check(serviceName))
	assert.ErrorIs(t, rt.Start(), ErrAlreadyStarted)

	conn := dial(t, rt.Addr())
	resp, err := pb.NewInferencerClient(conn).GenerateText(context.Background(), &pb.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "This is a generated response for the prompt: 'hi'", resp.GetGeneratedText())

	hr, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hr.GetStatus())
}

func TestRuntimeStartFailsOnBusyPort(t *testing.T) {
	first := newTestRuntime(t, backend.NewStub(0), Config{})
	require.NoError(t, first.Start())

	_, port, _ := splitHostPort(first.Addr())
	second := New(Config{Host: "127.0.0.1", Port: port}, grpcapi.NewServer(backend.NewStub(0)))
	err := second.Start()
	require.Error(t, err)
	assert.Equal(t, StateInitializing, second.State())
	second.Shutdown()
	assert.Equal(t, StateStopped, second.State())
}

func TestRuntimeQueuesBeyondWorkers(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(100*time.Millisecond), Config{Workers: 10})
	require.NoError(t, rt.Start())
	client := pb.NewInferencerClient(dial(t, rt.Addr()))

	var wg sync.WaitGroup
	errs := make(chan error, 15)
	start := time.Now()
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GenerateText(context.Background(), &pb.GenerateRequest{Prompt: "p"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	// 15 calls over 10 workers need at least two rounds.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRuntimeDrainCompletesInFlight(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(300*time.Millisecond), Config{DrainTimeout: 5 * time.Second})
	require.NoError(t, rt.Start())
	client := pb.NewInferencerClient(dial(t, rt.Addr()))

	type result struct {
		resp *pb.GenerateResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := client.GenerateText(context.Background(), &pb.GenerateRequest{Prompt: "slow"})
		done <- result{resp, err}
	}()
	require.Eventually(t, func() bool { return rt.InFlight() == 1 }, 2*time.Second, 5*time.Millisecond)

	go rt.Shutdown()
	require.Eventually(t, func() bool { return rt.State() == StateDraining }, time.Second, 5*time.Millisecond)
	assert.Equal(t, health.NotServing, rt.Health().Check(serviceName))
	assert.False(t, rt.Ready())

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "This is a generated response for the prompt: 'slow'", r.resp.GetGeneratedText())

	select {
	case <-rt.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("runtime did not stop")
	}
	assert.Equal(t, StateStopped, rt.State())
}

func TestRuntimeDrainTimeoutAborts(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(10*time.Second), Config{DrainTimeout: 100 * time.Millisecond})
	require.NoError(t, rt.Start())
	client := pb.NewInferencerClient(dial(t, rt.Addr()))

	errCh := make(chan error, 1)
	go func() {
		_, err := client.GenerateText(context.Background(), &pb.GenerateRequest{Prompt: "stuck"})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return rt.InFlight() == 1 }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	rt.Shutdown()
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, StateStopped, rt.State())

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.NotEqual(t, codes.OK, status.Code(err))
	case <-time.After(3 * time.Second):
		t.Fatal("aborted call did not return")
	}
}

func TestRuntimeShutdownIdempotent(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(0), Config{})
	require.NoError(t, rt.Start())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); rt.Shutdown() }()
	}
	wg.Wait()
	rt.Shutdown()
	assert.Equal(t, StateStopped, rt.State())
}

func TestRuntimeRefusesCallsAfterShutdown(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(0), Config{})
	require.NoError(t, rt.Start())
	addr := rt.Addr()
	rt.Shutdown()

	conn := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := pb.NewInferencerClient(conn).GenerateText(ctx, &pb.GenerateRequest{Prompt: "late"})
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rt := newTestRuntime(t, backend.NewStub(0), Config{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Run(ctx) }()
	require.Eventually(t, rt.Ready, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateStopped, rt.State())
}

func TestRunReturnsListenError(t *testing.T) {
	first := newTestRuntime(t, backend.NewStub(0), Config{})
	require.NoError(t, first.Start())
	_, port, _ := splitHostPort(first.Addr())

	rt := New(Config{Host: "127.0.0.1", Port: port}, grpcapi.NewServer(backend.NewStub(0)))
	assert.Error(t, rt.Run(context.Background()))
}

func splitHostPort(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	return host, port, err
}
