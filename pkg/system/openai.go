package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"aimatrix/pkg/core"
)

// OpenAISystem adapts the OpenAI Responses API to the system-under-test
// capability. The API exposes no top-k parameter, so a configuration's
// top-k is ignored here.
type OpenAISystem struct {
	Client     openai.Client
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewOpenAISystemFromEnv() (*OpenAISystem, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is required")
	}
	return &OpenAISystem{
		Client:     openai.NewClient(option.WithAPIKey(apiKey)),
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}, nil
}

func (o *OpenAISystem) Name() string { return "openai" }

func (o *OpenAISystem) Invoke(ctx context.Context, cfg core.Configuration, input string) (core.Invocation, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := o.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := o.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	params := responses.ResponseNewParams{
		Model: openai.ChatModel(cfg.ModelID),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
		Store: openai.Bool(false),
	}
	if instruction := renderInstruction(cfg); instruction != "" {
		params.Instructions = openai.String(instruction)
	}
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}
	if cfg.TopP != nil {
		params.TopP = openai.Float(*cfg.TopP)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := o.Client.Responses.New(attemptCtx, params)
		cancel()
		if err == nil {
			content := resp.OutputText()
			if content == "" {
				return core.Invocation{}, fmt.Errorf("openai: empty response")
			}
			return core.Invocation{Output: content}, nil
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

	return core.Invocation{}, fmt.Errorf("openai: request failed after retries: %w", lastErr)
}
