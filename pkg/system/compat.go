package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"aimatrix/pkg/core"
)

const defaultCompatBaseURL = "http://localhost:11434/v1"

// CompatSystem drives any OpenAI-compatible chat-completions endpoint,
// typically a local Ollama server. Useful for evaluating local models
// with the same configuration matrix as the hosted providers.
type CompatSystem struct {
	Client     openai.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewCompatSystem(baseURL string) *CompatSystem {
	if baseURL == "" {
		baseURL = defaultCompatBaseURL
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey("ollama"),
	}
	return &CompatSystem{
		Client:     openai.NewClient(opts...),
		BaseURL:    baseURL,
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}
}

func (c *CompatSystem) Name() string { return "openai-compat" }

func (c *CompatSystem) Invoke(ctx context.Context, cfg core.Configuration, input string) (core.Invocation, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if instruction := renderInstruction(cfg); instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	messages = append(messages, openai.UserMessage(input))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(cfg.ModelID),
		Messages: messages,
	}
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}
	if cfg.TopP != nil {
		params.TopP = openai.Float(*cfg.TopP)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		completion, err := c.Client.Chat.Completions.New(attemptCtx, params)
		cancel()
		if err == nil {
			if len(completion.Choices) == 0 {
				return core.Invocation{}, fmt.Errorf("openai-compat: empty response")
			}
			return core.Invocation{Output: completion.Choices[0].Message.Content}, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.Invocation{}, err
		}
		lastErr = err

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return core.Invocation{}, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt+1)):
			}
		}
	}

	return core.Invocation{}, fmt.Errorf("openai-compat: request failed after retries: %w", lastErr)
}
