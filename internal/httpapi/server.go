package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/health"
)

// Service is the view of the gRPC runtime exposed over HTTP.
type Service interface {
	Ready() bool
	Status() StatusResponse
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State    string            `json:"state"`
	Addr     string            `json:"addr"`
	InFlight int64             `json:"in_flight"`
	Queued   int64             `json:"queued"`
	Health   map[string]string `json:"health"`
}

// HealthSnapshot renders registry statuses for a StatusResponse.
func HealthSnapshot(r *health.Registry) map[string]string {
	out := make(map[string]string)
	for name, st := range r.Services() {
		if name == "" {
			name = "(server)"
		}
		out[name] = st.String()
	}
	return out
}

// NewMux builds the operational HTTP surface: liveness, readiness, status
// and Prometheus metrics.
func NewMux(svc Service, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not serving"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// Sidecar runs the HTTP mux next to the gRPC server.
type Sidecar struct {
	srv *http.Server
	lis net.Listener
	log zerolog.Logger
}

// Listen binds addr and returns a Sidecar ready to Serve.
func Listen(addr string, h http.Handler, log zerolog.Logger) (*Sidecar, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Sidecar{
		srv: &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		lis: lis,
		log: log,
	}, nil
}

// Addr is the bound address.
func (s *Sidecar) Addr() string { return s.lis.Addr().String() }

// Serve blocks until Shutdown. Unexpected errors are logged.
func (s *Sidecar) Serve() {
	s.log.Info().Str("addr", s.Addr()).Msg("http sidecar listening")
	if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("http sidecar failed")
	}
}

// Shutdown stops the sidecar, waiting at most 5s for open requests.
func (s *Sidecar) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": msg,
		"code":  status,
	})
}
