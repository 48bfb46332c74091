package system

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aimatrix/pkg/core"
)

// MathEvalGrader scores a generated expression by evaluating it
// against a separate expression-evaluation service. Rate-limit
// responses are retried with backoff; any other failure surfaces as
// an error for the caller to record.
type MathEvalGrader struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewMathEvalGrader(endpoint, apiKey string) *MathEvalGrader {
	return &MathEvalGrader{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

func (m *MathEvalGrader) Name() string { return "math-eval" }

type mathEvalRequest struct {
	Expression string `json:"expression"`
}

type mathEvalResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Grade submits the expression and returns the evaluated result.
// HTTP 429 is retried with linear backoff up to MaxRetries; every
// other non-200 status fails immediately.
func (m *MathEvalGrader) Grade(ctx context.Context, expression string) (core.Invocation, error) {
	if m.Endpoint == "" {
		return core.Invocation{}, errors.New("math-eval: endpoint is required")
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := m.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := m.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	body, err := json.Marshal(mathEvalRequest{Expression: expression})
	if err != nil {
		return core.Invocation{}, fmt.Errorf("math-eval: encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, retryable, err := m.post(attemptCtx, client, body)
		cancel()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.Invocation{}, err
		}
		lastErr = err
		if !retryable {
			return core.Invocation{}, err
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return core.Invocation{}, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt+1)):
			}
		}
	}
	return core.Invocation{}, fmt.Errorf("math-eval: request failed after retries: %w", lastErr)
}

func (m *MathEvalGrader) post(ctx context.Context, client *http.Client, body []byte) (core.Invocation, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return core.Invocation{}, false, fmt.Errorf("math-eval: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return core.Invocation{}, true, fmt.Errorf("math-eval: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return core.Invocation{}, true, errors.New("math-eval: rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.Invocation{}, false, fmt.Errorf("math-eval: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded mathEvalResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return core.Invocation{}, false, fmt.Errorf("math-eval: decode response: %w", err)
	}
	if decoded.Error != "" {
		return core.Invocation{}, false, fmt.Errorf("math-eval: %s", decoded.Error)
	}
	return core.Invocation{Output: decoded.Result}, false, nil
}

// Validator adapts the grader into a test case's custom-validation
// hook: the trial output is evaluated remotely and must produce the
// expected result. Grader failures degrade quality without failing
// the trial outright, matching the engine's never-abort policy.
func (m *MathEvalGrader) Validator(expected string) core.CustomValidator {
	return func(output string, _ core.TestCase) (core.CustomVerdict, error) {
		result, err := m.Grade(context.Background(), output)
		if err != nil {
			return core.CustomVerdict{}, err
		}
		if strings.TrimSpace(result.Output) != strings.TrimSpace(expected) {
			return core.CustomVerdict{
				Valid:             false,
				Issues:            []string{fmt.Sprintf("evaluated result %q does not match expected %q", result.Output, expected)},
				QualityMultiplier: 0.5,
			}, nil
		}
		return core.CustomVerdict{Valid: true}, nil
	}
}
