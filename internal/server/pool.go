package server

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	workersBusy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "busy_workers",
		Help:      "Calls currently holding a worker slot",
	})
	workersQueued = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "queued_calls",
		Help:      "Calls waiting for a worker slot",
	})
)

func init() {
	prometheus.MustRegister(workersBusy, workersQueued)
}

// workerPool bounds concurrent service calls. Excess calls wait in arrival
// order for a slot; none are rejected. A waiting call whose context ends
// leaves the queue with the matching status.
type workerPool struct {
	slots    chan struct{}
	prefixes []string
	busy     atomic.Int64
	queued   atomic.Int64
}

func newWorkerPool(size int, services ...string) *workerPool {
	p := &workerPool{slots: make(chan struct{}, size)}
	for _, s := range services {
		p.prefixes = append(p.prefixes, "/"+s+"/")
	}
	return p
}

func (p *workerPool) covers(method string) bool {
	for _, pre := range p.prefixes {
		if strings.HasPrefix(method, pre) {
			return true
		}
	}
	return false
}

func (p *workerPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
	default:
		p.queued.Add(1)
		workersQueued.Inc()
		select {
		case p.slots <- struct{}{}:
			p.queued.Add(-1)
			workersQueued.Dec()
		case <-ctx.Done():
			p.queued.Add(-1)
			workersQueued.Dec()
			return status.FromContextError(ctx.Err()).Err()
		}
	}
	p.busy.Add(1)
	workersBusy.Inc()
	return nil
}

func (p *workerPool) release() {
	p.busy.Add(-1)
	workersBusy.Dec()
	<-p.slots
}

// interceptor gates only the registered services; health and reflection
// bypass the pool so probes stay responsive under load.
func (p *workerPool) interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !p.covers(info.FullMethod) {
			return handler(ctx, req)
		}
		if err := p.acquire(ctx); err != nil {
			return nil, err
		}
		defer p.release()
		return handler(ctx, req)
	}
}
