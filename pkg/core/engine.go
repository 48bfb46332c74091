package core

import (
	"context"
	"time"
)

// Engine drives single trials against the system under test. It holds
// no state between trials and performs no retries; retry policy lives
// in the adapter behind the System interface.
type Engine struct {
	System System
}

// RunTrial executes one trial and always returns a Result, never an
// error: capability failures, timeouts, and cancellations are captured
// as failed Results so success-rate denominators stay well-defined.
// Wall-clock latency is recorded on every path, including failures.
func (e Engine) RunTrial(ctx context.Context, cfg Configuration, tc TestCase) Result {
	result := Result{
		TestCaseID: tc.ID,
		ConfigID:   cfg.Hash(),
		Timestamp:  time.Now().UTC(),
	}

	start := time.Now()
	invocation, err := e.System.Invoke(ctx, cfg, tc.Input)
	result.Latency = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		return result
	}

	verdict := ValidateOutput(invocation.Output, tc)
	result.Output = invocation.Output
	result.HasOutput = true
	result.Success = verdict.Valid
	result.Quality = verdict.Quality
	result.HasQuality = true
	result.Issues = verdict.Issues
	return result
}

// RunSeries executes n trials strictly sequentially and in order,
// pausing at least pause between consecutive calls. The ordering is
// load-bearing: the consistency measure counts distinct outputs across
// the trial sequence. A cancelled context does not shorten the series;
// remaining trials complete immediately as failures.
func (e Engine) RunSeries(ctx context.Context, cfg Configuration, tc TestCase, n int, pause time.Duration) []Result {
	results := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
		results = append(results, e.RunTrial(ctx, cfg, tc))
	}
	return results
}
