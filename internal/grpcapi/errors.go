package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"inferd/internal/backend"
)

// modelErrorPrefix starts the status message of every backend failure.
const modelErrorPrefix = "An error occurred in the model: "

// statusFromError maps a backend failure onto a gRPC status. Failures are
// INTERNAL unless the call itself was canceled or ran out of time.
func statusFromError(ctx context.Context, err error) *status.Status {
	msg := modelErrorPrefix + err.Error()
	if backend.IsCanceled(err) {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
			return status.New(codes.DeadlineExceeded, msg)
		default:
			return status.New(codes.Canceled, msg)
		}
	}
	return status.New(codes.Internal, msg)
}
