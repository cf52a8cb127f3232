package grpcapi

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"inferd/internal/telemetry"
	pb "inferd/pkg/inferencepb"
)

// RequestIDHeader is the metadata key carrying a caller-supplied request id.
const RequestIDHeader = "x-request-id"

const previewLen = 50

type requestIDKey struct{}

// RequestID returns the id assigned to the call in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}

// RecoveryInterceptor turns a handler panic into an INTERNAL status so one
// bad request cannot take the process down.
func RecoveryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("method", info.FullMethod).
					Bytes("stack", debug.Stack()).
					Msg("handler panic")
				resp, err = nil, status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor assigns a request id and logs one line per call.
// Health probes log at debug to keep the info stream readable.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := requestIDFrom(ctx)
		ctx = context.WithValue(ctx, requestIDKey{}, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		l := log.With().Str("request_id", id).Str("method", info.FullMethod).Logger()
		if tid := telemetry.TraceID(ctx); tid != "" {
			l = l.With().Str("trace_id", tid).Logger()
		}
		probe := strings.HasPrefix(info.FullMethod, "/grpc.health.v1.") ||
			strings.HasPrefix(info.FullMethod, "/grpc.reflection.")

		var promptLen int
		if gr, ok := req.(*pb.GenerateRequest); ok {
			promptLen = len(gr.GetPrompt())
			l.Debug().Int("prompt_len", promptLen).Str("preview", preview(gr.GetPrompt())).Msg("generate start")
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if gr, ok := resp.(*pb.GenerateResponse); ok && err == nil {
			text := gr.GetGeneratedText()
			l.Debug().Int("text_len", len(text)).Str("preview", preview(text)).Msg("generate result")
		}

		var ev *zerolog.Event
		switch {
		case probe:
			ev = l.Debug()
		case err != nil:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev = ev.Str("code", code.String()).Dur("dur", time.Since(start))
		if _, ok := req.(*pb.GenerateRequest); ok {
			ev = ev.Int("prompt_len", promptLen)
		}
		if err != nil {
			ev = ev.Str("error", status.Convert(err).Message())
		}
		ev.Msg("request done")
		return resp, err
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
