// Package health tracks per-service serving status and exposes it over the
// standard grpc.health.v1 protocol.
package health

import (
	"sync"
	"sync/atomic"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Status is the serving status of one service. Values match
// grpc.health.v1.HealthCheckResponse.ServingStatus.
type Status int32

const (
	Unknown    Status = 0
	Serving    Status = 1
	NotServing Status = 2
)

func (s Status) String() string {
	switch s {
	case Serving:
		return "SERVING"
	case NotServing:
		return "NOT_SERVING"
	default:
		return "UNKNOWN"
	}
}

func (s Status) proto() healthpb.HealthCheckResponse_ServingStatus {
	return healthpb.HealthCheckResponse_ServingStatus(s)
}

// Registry maps service names to their status. The empty name stands for the
// whole server. Reads are lock-free; writers are serialized so the mirrored
// grpc health server never observes updates out of order.
type Registry struct {
	mu       sync.Mutex
	statuses sync.Map // string -> *atomic.Int32
	shutdown bool
	srv      *grpchealth.Server
}

// NewRegistry returns an empty registry. Every name reports Unknown until Set.
func NewRegistry() *Registry {
	r := &Registry{srv: grpchealth.NewServer()}
	// grpchealth.NewServer marks "" SERVING; the registry starts from Unknown.
	r.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
	return r
}

// Set records status for service. Calls after Shutdown are ignored until
// Resume.
func (r *Registry) Set(service string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return
	}
	r.store(service, status)
}

func (r *Registry) store(service string, status Status) {
	v, _ := r.statuses.LoadOrStore(service, new(atomic.Int32))
	v.(*atomic.Int32).Store(int32(status))
	r.srv.SetServingStatus(service, status.proto())
}

// Check returns the recorded status, or Unknown for a name never Set.
func (r *Registry) Check(service string) Status {
	v, ok := r.statuses.Load(service)
	if !ok {
		return Unknown
	}
	return Status(v.(*atomic.Int32).Load())
}

// Shutdown marks every registered service NOT_SERVING and freezes the
// registry so later Set calls cannot flip it back.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
	r.statuses.Range(func(k, v any) bool {
		v.(*atomic.Int32).Store(int32(NotServing))
		return true
	})
	r.srv.Shutdown()
}

// Resume undoes Shutdown, restoring every service to SERVING.
func (r *Registry) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = false
	r.statuses.Range(func(k, v any) bool {
		v.(*atomic.Int32).Store(int32(Serving))
		return true
	})
	r.srv.Resume()
}

// Services returns a snapshot of every registered service and its status.
func (r *Registry) Services() map[string]Status {
	out := make(map[string]Status)
	r.statuses.Range(func(k, v any) bool {
		out[k.(string)] = Status(v.(*atomic.Int32).Load())
		return true
	})
	return out
}

// Server returns the grpc.health.v1 implementation backed by this registry.
// Unregistered names answer NOT_FOUND on the wire, as in every grpc health
// server.
func (r *Registry) Server() healthpb.HealthServer {
	return r.srv
}
