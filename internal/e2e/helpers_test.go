package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"inferd/internal/backend"
	"inferd/internal/grpcapi"
	"inferd/internal/server"
)

// fakeUpstream imitates an OpenAI-compatible chat completions endpoint.
type fakeUpstream struct {
	*httptest.Server
	calls  atomic.Int64
	status int
	delay  time.Duration
	reply  func(prompt string) string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{status: http.StatusOK, reply: func(p string) string { return "echo: " + p }}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	t.Cleanup(u.Close)
	return u
}

func (u *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	u.calls.Add(1)
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	if u.delay > 0 {
		select {
		case <-time.After(u.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if u.status != http.StatusOK {
		w.WriteHeader(u.status)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream unavailable","type":"server_error"}}`)
		return
	}
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[0].Content
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   backend.DefaultOpenAIModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": u.reply(prompt)},
		}},
	})
}

// startStack runs the full server stack against upstream.
func startStack(t *testing.T, upstream *fakeUpstream, cfg server.Config) *server.Runtime {
	t.Helper()
	b, err := backend.New(backend.Config{Provider: backend.ProviderOpenAI, APIKey: "e2e-key", BaseURL: upstream.URL})
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	b = backend.Instrument(b)
	log := zerolog.Nop()

	cfg.Host = "127.0.0.1"
	cfg.Port = -1
	rt := server.New(cfg, grpcapi.NewServer(b, grpcapi.WithLogger(log)),
		server.WithLogger(log),
		server.WithUnaryInterceptors(
			grpcapi.RecoveryInterceptor(log),
			grpcapi.LoggingInterceptor(log),
			grpcapi.MetricsInterceptor(),
		),
	)
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(rt.Shutdown)
	return rt
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func ctxTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
