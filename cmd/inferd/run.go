package main

import (
	"context"
	"fmt"
	"io"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/grpcapi"
	"inferd/internal/httpapi"
	"inferd/internal/logging"
	"inferd/internal/server"
	"inferd/internal/telemetry"
)

type runOptions struct {
	configPath string
	envFile    string
	logWriter  io.Writer
	// started, when set, receives the runtime once it serves.
	started func(*server.Runtime)
}

// run wires the process and blocks until ctx is done. Any error before the
// server starts serving is returned so main exits non-zero.
func run(ctx context.Context, opts runOptions) error {
	if opts.envFile != "" {
		if err := config.LoadDotEnv(opts.envFile); err != nil {
			return err
		}
	}
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: opts.logWriter})

	shutdownTracing, err := telemetry.Init(ctx, cfg.TelemetryConfig(version))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	stopProfiling, err := telemetry.InitProfiling(cfg.ProfilingConfig(version))
	if err != nil {
		return fmt.Errorf("profiling: %w", err)
	}
	defer func() { _ = stopProfiling() }()

	b, err := backend.New(cfg.BackendConfig())
	if err != nil {
		return err
	}
	b = backend.Instrument(b)
	defer func() { _ = b.Close() }()

	svc := grpcapi.NewServer(b,
		grpcapi.WithLogger(log),
		grpcapi.WithRequestTimeout(cfg.RequestTimeout()),
	)
	rt := server.New(cfg.ServerConfig(), svc,
		server.WithLogger(log),
		server.WithServerOptions(telemetry.ServerOptions()...),
		server.WithUnaryInterceptors(
			grpcapi.RecoveryInterceptor(log),
			grpcapi.LoggingInterceptor(log),
			grpcapi.MetricsInterceptor(),
		),
	)
	if err := rt.Start(); err != nil {
		return err
	}
	log.Info().
		Str("version", version).
		Str("backend", b.Name()).
		Str("model", cfg.Backend.Model).
		Msg("inferd started")

	if cfg.Metrics.Addr != "" {
		sc, err := httpapi.Listen(cfg.Metrics.Addr, httpapi.NewMux(runtimeView{rt}, log), log)
		if err != nil {
			rt.Shutdown()
			return fmt.Errorf("metrics listener: %w", err)
		}
		go sc.Serve()
		defer func() { _ = sc.Shutdown() }()
	}

	if opts.started != nil {
		opts.started(rt)
	}
	return rt.Run(ctx)
}

// runtimeView adapts the gRPC runtime to the HTTP sidecar.
type runtimeView struct{ rt *server.Runtime }

func (v runtimeView) Ready() bool { return v.rt.Ready() }

func (v runtimeView) Status() httpapi.StatusResponse {
	return httpapi.StatusResponse{
		State:    string(v.rt.State()),
		Addr:     v.rt.Addr(),
		InFlight: v.rt.InFlight(),
		Queued:   v.rt.Queued(),
		Health:   httpapi.HealthSnapshot(v.rt.Health()),
	}
}
