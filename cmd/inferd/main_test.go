package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"inferd/internal/server"
	pb "inferd/pkg/inferencepb"
)

// TestMain lets the test binary stand in for the inferd executable: when
// INFERD_TEST_EXEC is set it runs main with INFERD_TEST_ARGS instead of the
// tests.
func TestMain(m *testing.M) {
	if os.Getenv("INFERD_TEST_EXEC") == "1" {
		os.Args = append([]string{"inferd"}, strings.Fields(os.Getenv("INFERD_TEST_ARGS"))...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "inferd.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// inferdCmd prepares a child process running main in an empty directory so
// no stray .env is picked up.
func inferdCmd(t *testing.T, args string, env ...string) (*exec.Cmd, *bytes.Buffer) {
	t.Helper()
	cmd := exec.Command(os.Args[0])
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"INFERD_TEST_EXEC=1",
		"INFERD_TEST_ARGS="+args,
		"GEMINI_API_KEY=",
		"INFERD_API_KEY=",
		"INFERD_CONFIG=",
		"INFERD_BACKEND=",
	)
	cmd.Env = append(cmd.Env, env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	return cmd, &stderr
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestExitsNonZeroWithoutAPIKey(t *testing.T) {
	cmd, stderr := inferdCmd(t, "")
	err := cmd.Run()
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, stderr.String(), "GEMINI_API_KEY")
}

func TestExitsNonZeroOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	cmd, stderr := inferdCmd(t, "",
		"INFERD_BACKEND=stub",
		"INFERD_HOST=127.0.0.1",
		fmt.Sprintf("INFERD_PORT=%d", port),
	)
	err = cmd.Run()
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, stderr.String(), "listen")
}

func TestRejectsPositionalArgs(t *testing.T) {
	cmd, _ := inferdCmd(t, "unexpected")
	assert.Equal(t, 1, exitCode(cmd.Run()))
}

func TestRunServesUntilCanceled(t *testing.T) {
	port := freePort(t)
	cfgPath := writeConfig(t, fmt.Sprintf(`host: 127.0.0.1
port: %d
drain_timeout_seconds: 2
log:
  level: "off"
backend:
  provider: stub
metrics:
  addr: ""
`, port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan *server.Runtime, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, runOptions{
			configPath: cfgPath,
			logWriter:  &bytes.Buffer{},
			started:    func(rt *server.Runtime) { ready <- rt },
		})
	}()

	var rt *server.Runtime
	select {
	case rt = <-ready:
	case err := <-errCh:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	conn, err := grpc.NewClient(rt.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	resp, err := pb.NewInferencerClient(conn).GenerateText(context.Background(), &pb.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "This is a generated response for the prompt: 'hi'", resp.GetGeneratedText())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.Equal(t, server.StateStopped, rt.State())
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfgPath := writeConfig(t, "backend:\n  provider: mystery\n")
	err := run(context.Background(), runOptions{configPath: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.provider")
}
