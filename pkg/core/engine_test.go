package core

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedSystem replays outputs (or errors) in call order.
type scriptedSystem struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	delay   time.Duration
	calls   int
}

func (s *scriptedSystem) Name() string { return "scripted" }

func (s *scriptedSystem) Invoke(ctx context.Context, _ Configuration, input string) (Invocation, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Invocation{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return Invocation{}, err
	}
	if len(s.errs) > 0 && s.errs[call%len(s.errs)] != nil {
		return Invocation{}, s.errs[call%len(s.errs)]
	}
	if len(s.outputs) == 0 {
		return Invocation{Output: input}, nil
	}
	return Invocation{Output: s.outputs[call%len(s.outputs)]}, nil
}

func numericCase(id string) TestCase {
	return TestCase{ID: id, Name: id, Input: "2+2", ExpectedKind: ExpectNumeric}
}

func TestRunTrialSuccess(t *testing.T) {
	engine := Engine{System: &scriptedSystem{outputs: []string{"4"}}}
	cfg := Configuration{ModelID: "m", OutputMode: OutputFreeText}

	result := engine.RunTrial(context.Background(), cfg, numericCase("t1"))
	require.True(t, result.Success)
	require.Equal(t, "4", result.Output)
	require.True(t, result.HasOutput)
	require.True(t, result.HasQuality)
	require.Equal(t, 1.0, result.Quality)
	require.Equal(t, cfg.Hash(), result.ConfigID)
	require.Equal(t, "t1", result.TestCaseID)
	require.Empty(t, result.Error)
}

func TestRunTrialCapabilityFailureIsData(t *testing.T) {
	engine := Engine{System: &scriptedSystem{errs: []error{errors.New("transport: 503")}}}

	result := engine.RunTrial(context.Background(), Configuration{}, numericCase("t1"))
	require.False(t, result.Success)
	require.False(t, result.HasOutput)
	require.False(t, result.HasQuality)
	require.Equal(t, "transport: 503", result.Error)
	require.GreaterOrEqual(t, result.Latency, time.Duration(0))
}

func TestRunTrialValidatorRejectionIsNotSuccess(t *testing.T) {
	// The call succeeded at the transport level; the output still
	// fails validation, so the trial fails with issues, not an error.
	engine := Engine{System: &scriptedSystem{outputs: []string{"not a number"}}}

	result := engine.RunTrial(context.Background(), Configuration{}, numericCase("t1"))
	require.False(t, result.Success)
	require.True(t, result.HasOutput)
	require.NotEmpty(t, result.Issues)
	require.Empty(t, result.Error)
	require.Equal(t, 0.5, result.Quality)
}

func TestRunTrialRecordsLatencyOnFailure(t *testing.T) {
	engine := Engine{System: &scriptedSystem{
		errs:  []error{errors.New("slow failure")},
		delay: 20 * time.Millisecond,
	}}

	result := engine.RunTrial(context.Background(), Configuration{}, numericCase("t1"))
	require.False(t, result.Success)
	require.GreaterOrEqual(t, result.Latency, 20*time.Millisecond)
}

func TestRunSeriesOrderedAndComplete(t *testing.T) {
	sys := &scriptedSystem{outputs: []string{"4", "5", "4"}}
	engine := Engine{System: sys}

	results := engine.RunSeries(context.Background(), Configuration{}, numericCase("t1"), 3, 0)
	require.Len(t, results, 3)
	require.Equal(t, "4", results[0].Output)
	require.Equal(t, "5", results[1].Output)
	require.Equal(t, "4", results[2].Output)
}

func TestRunSeriesEnforcesPause(t *testing.T) {
	engine := Engine{System: &scriptedSystem{outputs: []string{"4"}}}

	start := time.Now()
	results := engine.RunSeries(context.Background(), Configuration{}, numericCase("t1"), 3, 15*time.Millisecond)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestRunSeriesCancelledTrialsAreRecordedFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := Engine{System: &scriptedSystem{outputs: []string{"4"}}}
	results := engine.RunSeries(ctx, Configuration{}, numericCase("t1"), 4, 50*time.Millisecond)

	// Cancellation must not shrink the denominator.
	require.Len(t, results, 4)
	for _, r := range results {
		require.False(t, r.Success)
		require.NotEmpty(t, r.Error)
	}
}

func TestRunTrialPatternedCase(t *testing.T) {
	engine := Engine{System: &scriptedSystem{outputs: []string{`{"x": 1, "y": -1}`}}}
	tc := TestCase{
		ID:              "system-of-equations",
		Input:           "Solve: 2x + 3y = 7 and x - y = 1",
		ExpectedKind:    ExpectStructured,
		ExpectedPattern: regexp.MustCompile(`\{.*\}`),
	}

	result := engine.RunTrial(context.Background(), Configuration{}, tc)
	require.True(t, result.Success)
	require.Equal(t, 1.0, result.Quality)
}
