package backend

import (
	"context"
	"fmt"
	"time"
)

// stubBackend answers every prompt with a canned sentence. It stands in for a
// real model during local development and tests.
type stubBackend struct {
	delay time.Duration
}

// NewStub returns a Backend that echoes the prompt in a fixed sentence after
// an optional artificial delay.
func NewStub(delay time.Duration) Backend {
	return &stubBackend{delay: delay}
}

func (s *stubBackend) Name() string { return ProviderStub }

func (s *stubBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", canceled(ProviderStub, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return "", canceled(ProviderStub, err)
	}
	return fmt.Sprintf("This is a generated response for the prompt: '%s'", prompt), nil
}

func (s *stubBackend) Close() error { return nil }
