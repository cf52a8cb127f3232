package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"inferd/internal/health"
)

// ErrAlreadyStarted is returned by Start on a Runtime that left the
// initializing state.
var ErrAlreadyStarted = errors.New("server: already started")

// Service is a gRPC service hosted by a Runtime.
type Service interface {
	Register(grpc.ServiceRegistrar)
	ServiceName() string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the lifecycle logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Runtime) { r.log = l } }

// WithHealth shares an existing health registry instead of creating one.
func WithHealth(h *health.Registry) Option { return func(r *Runtime) { r.health = h } }

// WithServerOptions appends raw gRPC server options.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(r *Runtime) { r.serverOpts = append(r.serverOpts, opts...) }
}

// WithUnaryInterceptors adds interceptors that run before the worker pool.
func WithUnaryInterceptors(icpts ...grpc.UnaryServerInterceptor) Option {
	return func(r *Runtime) { r.interceptors = append(r.interceptors, icpts...) }
}

// Runtime hosts one service on a gRPC server with health reporting, a bounded
// worker pool and graceful drain on shutdown.
type Runtime struct {
	cfg          Config
	svc          Service
	log          zerolog.Logger
	health       *health.Registry
	serverOpts   []grpc.ServerOption
	interceptors []grpc.UnaryServerInterceptor
	pool         *workerPool

	mu    sync.Mutex
	state State
	gs    *grpc.Server
	lis   net.Listener

	serveErr     chan error
	shutdownOnce sync.Once
	done         chan struct{}
}

// New returns a Runtime in the initializing state. Nothing listens until
// Start.
func New(cfg Config, svc Service, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:      cfg.withDefaults(),
		svc:      svc,
		log:      zerolog.Nop(),
		state:    StateInitializing,
		serveErr: make(chan error, 1),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	if r.health == nil {
		r.health = health.NewRegistry()
	}
	r.pool = newWorkerPool(r.cfg.Workers, svc.ServiceName())
	return r
}

// Start binds the listener, registers the service, health and (optionally)
// reflection, marks the service SERVING and begins accepting calls.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInitializing {
		return ErrAlreadyStarted
	}

	addr := r.cfg.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	chain := append(append([]grpc.UnaryServerInterceptor(nil), r.interceptors...), r.pool.interceptor())
	opts := append(append([]grpc.ServerOption(nil), r.serverOpts...),
		grpc.ChainUnaryInterceptor(chain...),
		grpc.NumStreamWorkers(r.cfg.streamWorkers()),
	)
	gs := grpc.NewServer(opts...)

	r.svc.Register(gs)
	healthpb.RegisterHealthServer(gs, r.health.Server())
	if r.cfg.Reflection {
		reflection.Register(gs)
	}

	r.gs = gs
	r.lis = lis
	r.health.Set(r.svc.ServiceName(), health.Serving)
	r.health.Set("", health.Serving)
	r.advanceLocked(StateServing)

	go func() {
		r.serveErr <- gs.Serve(lis)
	}()
	r.log.Info().
		Str("addr", lis.Addr().String()).
		Str("service", r.svc.ServiceName()).
		Int("workers", r.cfg.Workers).
		Msg("grpc server listening")
	return nil
}

// Run starts the server when needed and blocks until ctx is done or the
// server fails, then drains. A nil return means a clean shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if r.State() == StateInitializing {
		if err := r.Start(); err != nil {
			return err
		}
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.log.Info().Msg("shutdown requested")
		r.Shutdown()
		return nil
	case err := <-r.serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			r.log.Error().Err(err).Msg("grpc serve failed")
			r.Shutdown()
			return fmt.Errorf("serve: %w", err)
		}
		// Serve returned because Shutdown was called elsewhere.
		<-r.done
		return nil
	}
}

// Shutdown stops accepting new calls, flips health to NOT_SERVING and lets
// admitted calls finish within DrainTimeout before forcing a stop. It blocks
// until the runtime is stopped. Later calls are no-ops.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(r.shutdown)
	<-r.done
}

func (r *Runtime) shutdown() {
	defer close(r.done)

	r.mu.Lock()
	gs := r.gs
	started := r.state != StateInitializing
	r.mu.Unlock()
	if !started {
		r.advance(StateStopped)
		return
	}

	r.health.Shutdown()
	r.advance(StateDraining)
	r.log.Info().
		Dur("drain_timeout", r.cfg.DrainTimeout).
		Int64("in_flight", r.InFlight()).
		Msg("draining")

	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(r.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		r.log.Warn().Int64("in_flight", r.InFlight()).Msg("drain timeout expired, aborting in-flight calls")
		gs.Stop()
		select {
		case <-stopped:
		case <-time.After(stopGrace):
			r.log.Error().Msg("handlers still running after forced stop")
		}
	}
	r.advance(StateStopped)
	r.log.Info().Msg("server stopped")
}

func (r *Runtime) advance(next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked(next)
}

// advanceLocked moves to next when it is a forward transition. r.mu is held.
func (r *Runtime) advanceLocked(next State) {
	if !r.state.canAdvance(next) {
		return
	}
	r.log.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("state change")
	r.state = next
}

// State returns the current lifecycle phase.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Ready reports whether the runtime accepts new calls.
func (r *Runtime) Ready() bool { return r.State() == StateServing }

// Addr returns the bound listener address, or "" before Start.
func (r *Runtime) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lis == nil {
		return ""
	}
	return r.lis.Addr().String()
}

// Health returns the registry backing the health service.
func (r *Runtime) Health() *health.Registry { return r.health }

// InFlight returns the number of calls holding a worker slot.
func (r *Runtime) InFlight() int64 { return r.pool.busy.Load() }

// Queued returns the number of calls waiting for a worker slot.
func (r *Runtime) Queued() int64 { return r.pool.queued.Load() }

// Done is closed once the runtime reaches the stopped state.
func (r *Runtime) Done() <-chan struct{} { return r.done }
