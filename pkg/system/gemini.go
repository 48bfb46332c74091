package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"

	"aimatrix/pkg/core"
)

// GeminiSystem adapts the Gemini API to the system-under-test
// capability. Rate-limit responses are retried here with backoff; the
// execution engine only ever sees the final outcome.
type GeminiSystem struct {
	Client     *genai.Client
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewGeminiSystemFromEnv() (*GeminiSystem, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY or GOOGLE_API_KEY is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiSystem{
		Client:     client,
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}, nil
}

func (g *GeminiSystem) Name() string { return "gemini" }

func (g *GeminiSystem) Invoke(ctx context.Context, cfg core.Configuration, input string) (core.Invocation, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := g.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := g.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	genConfig := &genai.GenerateContentConfig{}
	if instruction := renderInstruction(cfg); instruction != "" {
		parts := genai.Text(instruction)
		if len(parts) > 0 && parts[0] != nil {
			genConfig.SystemInstruction = parts[0]
		}
	}
	if cfg.Temperature > 0 {
		genConfig.Temperature = ptrFloat32(float32(cfg.Temperature))
	}
	if cfg.TopK != nil {
		genConfig.TopK = ptrFloat32(float32(*cfg.TopK))
	}
	if cfg.TopP != nil {
		genConfig.TopP = ptrFloat32(float32(*cfg.TopP))
	}
	if cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.OutputMode == core.OutputStructured {
		genConfig.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := g.Client.Models.GenerateContent(attemptCtx, cfg.ModelID, genai.Text(input), genConfig)
		cancel()
		if err == nil {
			content := result.Text()
			if content == "" {
				return core.Invocation{}, fmt.Errorf("gemini: empty response")
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

	return core.Invocation{}, fmt.Errorf("gemini: request failed after retries: %w", lastErr)
}

func ptrFloat32(x float32) *float32 { return &x }
