package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"aimatrix/pkg/core"
)

// AnthropicSystem adapts the Anthropic Messages API to the
// system-under-test capability.
type AnthropicSystem struct {
	Client     anthropic.Client
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewAnthropicSystemFromEnv() (*AnthropicSystem, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("anthropic: ANTHROPIC_API_KEY is required")
	}
	return &AnthropicSystem{
		Client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}, nil
}

func (a *AnthropicSystem) Name() string { return "anthropic" }

func (a *AnthropicSystem) Invoke(ctx context.Context, cfg core.Configuration, input string) (core.Invocation, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := a.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := a.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.ModelID),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input)),
		},
	}
	if instruction := renderInstruction(cfg); instruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: instruction},
		}
	}
	if cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(cfg.Temperature)
	}
	if cfg.TopK != nil {
		params.TopK = anthropic.Int(int64(*cfg.TopK))
	}
	if cfg.TopP != nil {
		params.TopP = anthropic.Float(*cfg.TopP)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		message, err := a.Client.Messages.New(attemptCtx, params)
		cancel()
		if err == nil {
			return core.Invocation{Output: extractText(message.Content)}, nil
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

	return core.Invocation{}, fmt.Errorf("anthropic: request failed after retries: %w", lastErr)
}

func extractText(blocks []anthropic.ContentBlockUnion) string {
	if len(blocks) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	return builder.String()
}
