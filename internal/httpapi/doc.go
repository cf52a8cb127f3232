// Package httpapi serves the operational HTTP sidecar: /healthz, /readyz,
// /status and Prometheus /metrics. Inference itself is gRPC only.
package httpapi
