package backend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend turns a prompt into generated text.
//
// Generate is synchronous, accepts an empty prompt and returns the text
// exactly as the provider produced it. Failures are *Error values.
// Implementations must return promptly once ctx is done and must be safe
// for concurrent use.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	// Close releases any resources associated with the backend.
	Close() error
}

// Supported providers.
const (
	ProviderStub   = "stub"
	ProviderOpenAI = "openai"
	ProviderLlama  = "llama"
)

// Defaults applied by New when the corresponding Config fields are unset.
const (
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultOpenAIModel   = "gemini-2.5-flash"
	defaultLlamaContext  = 2048
	defaultLlamaTokens   = 512
)

// Config selects and parameterizes a Backend.
type Config struct {
	Provider string
	// OpenAI-compatible providers.
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// Stub provider.
	StubDelay time.Duration
	// llama.cpp provider; Model names a file under ModelsDir or a path.
	ModelsDir   string
	Threads     int
	ContextSize int
}

// New constructs the configured Backend. Configuration problems are reported
// here, once, as KindConfig errors so the process can fail fast.
func New(cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderStub:
		return NewStub(cfg.StubDelay), nil
	case ProviderOpenAI, "":
		return NewOpenAI(cfg)
	case ProviderLlama:
		return NewLlama(cfg)
	default:
		return nil, ErrConfig(cfg.Provider, fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}
