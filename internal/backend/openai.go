package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// openAIBackend calls an OpenAI-compatible chat completions endpoint. The
// defaults target Gemini's compatibility layer.
type openAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI builds an OpenAI-compatible Backend. An empty API key is a
// configuration error. The SDK's own retries are disabled: each call is
// attempted exactly once.
func NewOpenAI(cfg Config) (Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrConfig(ProviderOpenAI, "api key is not set (GEMINI_API_KEY)")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &openAIBackend{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (b *openAIBackend) Name() string { return ProviderOpenAI }

func (b *openAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if b.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(b.maxTokens))
	}
	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", b.classify(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", newError(KindMalformed, ProviderOpenAI, errors.New("response carried no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps SDK and transport errors onto backend kinds.
func (b *openAIBackend) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return canceled(ProviderOpenAI, ctxErr)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return newError(KindConfig, ProviderOpenAI, fmt.Errorf("model %s: %w", b.model, err))
		}
		return newError(KindTransient, ProviderOpenAI, err)
	}
	return newError(KindTransient, ProviderOpenAI, err)
}

func (b *openAIBackend) Close() error { return nil }
