package backend

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"

	"inferd/internal/telemetry"
)

var (
	generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "backend",
			Name:      "generate_total",
			Help:      "Total backend generations by outcome",
		},
		[]string{"backend", "outcome"},
	)

	generateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "backend",
			Name:      "generate_duration_seconds",
			Help:      "Duration of backend generations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(generateTotal, generateDuration)
}

type instrumented struct {
	Backend
}

// Instrument wraps b so every Generate call is counted, timed and traced.
func Instrument(b Backend) Backend {
	if b == nil {
		return nil
	}
	if _, ok := b.(*instrumented); ok {
		return b
	}
	return &instrumented{Backend: b}
}

func (i *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	name := i.Backend.Name()
	ctx, span := telemetry.StartSpan(ctx, "backend.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("backend", name),
		attribute.Int("prompt.length", len(prompt)),
	)

	start := time.Now()
	text, err := i.Backend.Generate(ctx, prompt)
	outcome := outcomeOf(err)
	generateTotal.WithLabelValues(name, outcome).Inc()
	generateDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("response.length", len(text)))
	return text, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if IsCanceled(err) {
		return KindCanceled.String()
	}
	return KindOf(err).String()
}
