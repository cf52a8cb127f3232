package grpcapi

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "inferd/pkg/inferencepb"
)

func TestRecoveryInterceptor(t *testing.T) {
	var buf bytes.Buffer
	icpt := RecoveryInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Inferencer_GenerateText_FullMethodName}

	resp, err := icpt(context.Background(), &pb.GenerateRequest{}, info, func(context.Context, any) (any, error) {
		panic("kaboom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "handler panic")
}

func TestLoggingInterceptorUsesCallerRequestID(t *testing.T) {
	var buf bytes.Buffer
	icpt := LoggingInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Inferencer_GenerateText_FullMethodName}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "req-42"))

	var seen string
	_, err := icpt(ctx, &pb.GenerateRequest{Prompt: "hello"}, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestID(ctx)
		return &pb.GenerateResponse{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"code":"OK"`)
	assert.Contains(t, out, `"prompt_len":5`)
}

func TestLoggingInterceptorGeneratesRequestID(t *testing.T) {
	icpt := LoggingInterceptor(zerolog.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var seen string
	_, _ = icpt(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestID(ctx)
		return nil, nil
	})
	assert.Len(t, seen, 36)
}

func TestLoggingInterceptorProbeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	icpt := LoggingInterceptor(zerolog.New(&buf).Level(zerolog.InfoLevel))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, _ = icpt(context.Background(), nil, info, func(context.Context, any) (any, error) { return nil, nil })
	assert.Empty(t, buf.String())
}

func TestLoggingInterceptorPreviewsGeneratedText(t *testing.T) {
	var buf bytes.Buffer
	icpt := LoggingInterceptor(zerolog.New(&buf).Level(zerolog.DebugLevel))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Inferencer_GenerateText_FullMethodName}
	text := strings.Repeat("b", 70)

	_, err := icpt(context.Background(), &pb.GenerateRequest{Prompt: "hi"}, info, func(context.Context, any) (any, error) {
		return &pb.GenerateResponse{GeneratedText: text}, nil
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"message":"generate result"`)
	assert.Contains(t, out, `"preview":"`+strings.Repeat("b", 50)+`..."`)
	assert.Contains(t, out, `"text_len":70`)
	assert.NotContains(t, out, strings.Repeat("b", 51))
}

func TestLoggingInterceptorSkipsPreviewOnFailure(t *testing.T) {
	var buf bytes.Buffer
	icpt := LoggingInterceptor(zerolog.New(&buf).Level(zerolog.DebugLevel))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Inferencer_GenerateText_FullMethodName}

	_, err := icpt(context.Background(), &pb.GenerateRequest{Prompt: "hi"}, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Internal, "boom")
	})
	require.Error(t, err)
	assert.NotContains(t, buf.String(), "generate result")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 50)+"...", preview(long))
}

func TestMetricsInterceptor(t *testing.T) {
	icpt := MetricsInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Metrics/Call"}

	before := testutil.ToFloat64(grpcRequestsTotal.WithLabelValues(info.FullMethod, "Internal"))
	_, err := icpt(context.Background(), nil, info, func(context.Context, any) (any, error) {
		assert.Equal(t, 1.0, testutil.ToFloat64(grpcInflight.WithLabelValues(info.FullMethod)))
		return nil, status.Error(codes.Internal, "x")
	})
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(grpcRequestsTotal.WithLabelValues(info.FullMethod, "Internal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(grpcInflight.WithLabelValues(info.FullMethod)))
}
