// Package grpcapi implements the inference.Inferencer gRPC service and the
// unary interceptors (recovery, request logging, metrics) installed in front
// of it.
package grpcapi
