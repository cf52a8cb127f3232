//go:build llama

package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"inferd/internal/registry"
)

// llamaBackend owns one in-process llama.cpp model. llama.cpp contexts are
// not reentrant, so generations are serialized.
type llamaBackend struct {
	mu        sync.Mutex
	model     *llama.LLama
	threads   int
	maxTokens int
}

// NewLlama loads the configured GGUF model.
func NewLlama(cfg Config) (Backend, error) {
	m, err := registry.Resolve(cfg.ModelsDir, cfg.Model)
	if err != nil {
		return nil, newError(KindConfig, ProviderLlama, err)
	}
	ctxSize := cfg.ContextSize
	if ctxSize <= 0 {
		ctxSize = defaultLlamaContext
	}
	model, err := llama.New(m.Path, llama.SetContext(ctxSize))
	if err != nil {
		return nil, newError(KindConfig, ProviderLlama, fmt.Errorf("load %s: %w", m.Path, err))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultLlamaTokens
	}
	return &llamaBackend{model: model, threads: max(1, cfg.Threads), maxTokens: maxTokens}, nil
}

func (b *llamaBackend) Name() string { return ProviderLlama }

func (b *llamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model == nil {
		return "", newError(KindConfig, ProviderLlama, errors.New("model is closed"))
	}
	if err := ctx.Err(); err != nil {
		return "", canceled(ProviderLlama, err)
	}
	// Returning false from the callback stops prediction.
	b.model.SetTokenCallback(func(string) bool { return ctx.Err() == nil })
	text, err := b.model.Predict(prompt,
		llama.SetTokens(b.maxTokens),
		llama.SetThreads(b.threads),
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", canceled(ProviderLlama, ctxErr)
	}
	if err != nil {
		return "", newError(KindTransient, ProviderLlama, err)
	}
	return text, nil
}

func (b *llamaBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}
