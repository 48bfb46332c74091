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

// matrixSystem scripts outputs per configuration model id.
type matrixSystem struct {
	mu      sync.Mutex
	scripts map[string][]string
	errs    map[string]error
	calls   map[string]int
}

func (m *matrixSystem) Name() string { return "matrix" }

func (m *matrixSystem) Invoke(ctx context.Context, cfg Configuration, _ string) (Invocation, error) {
	if err := ctx.Err(); err != nil {
		return Invocation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	call := m.calls[cfg.ModelID]
	m.calls[cfg.ModelID]++

	if err := m.errs[cfg.ModelID]; err != nil {
		return Invocation{}, err
	}
	script := m.scripts[cfg.ModelID]
	if len(script) == 0 {
		return Invocation{Output: "4"}, nil
	}
	return Invocation{Output: script[call%len(script)]}, nil
}

func TestRunnerRequiresSystemAndTrials(t *testing.T) {
	_, err := Runner{Trials: 1}.Run(context.Background(), nil, nil)
	require.Error(t, err)

	_, err = Runner{System: &matrixSystem{}}.Run(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestRunnerEmptyMatrixIsValid(t *testing.T) {
	out, err := Runner{System: &matrixSystem{}, Trials: 1}.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Empty(t, out.Outcomes)
	require.Empty(t, out.Report.Rankings)
}

func TestRunnerConsistentConfiguration(t *testing.T) {
	// Configuration always answers "4": success rate 1.0, consistency 1.0.
	sys := &matrixSystem{scripts: map[string][]string{"steady": {"4", "4", "4"}}}
	runner := Runner{System: sys, Trials: 3}

	out, err := runner.Run(context.Background(),
		[]Configuration{{ModelID: "steady"}},
		[]TestCase{numericCase("arith")})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)

	stat := out.Outcomes[0].Stat
	require.Equal(t, 3, stat.Trials)
	require.Equal(t, 1.0, stat.SuccessRate)
	require.Equal(t, 1.0, stat.Consistency)
}

func TestRunnerWaveringConfiguration(t *testing.T) {
	// "4", "5", "4" against a case expecting 4: rate 2/3, consistency 1/2.
	sys := &matrixSystem{scripts: map[string][]string{"wavering": {"4", "5", "4"}}}
	tc := TestCase{ID: "arith", Input: "2+2", ExpectedKind: ExpectNumeric,
		ExpectedPattern: mustPattern(`^4$`)}

	out, err := Runner{System: sys, Trials: 3}.Run(context.Background(),
		[]Configuration{{ModelID: "wavering"}}, []TestCase{tc})
	require.NoError(t, err)

	stat := out.Outcomes[0].Stat
	require.InDelta(t, 2.0/3.0, stat.SuccessRate, 1e-9)
	require.Equal(t, 2, stat.DistinctOutputs)
	require.Equal(t, 0.5, stat.Consistency)
}

func TestRunnerRankingAndInsight(t *testing.T) {
	// A succeeds 5/5, B succeeds 2/5: A ranks first and the 0.6 spread
	// trips the advisory.
	sys := &matrixSystem{scripts: map[string][]string{
		"model-a": {"4", "4", "4", "4", "4"},
		"model-b": {"4", "x", "x", "4", "x"},
	}}

	out, err := Runner{System: sys, Trials: 5}.Run(context.Background(),
		[]Configuration{{ModelID: "model-a"}, {ModelID: "model-b"}},
		[]TestCase{numericCase("arith")})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 2)

	best, ok := out.Report.Best()
	require.True(t, ok)
	require.Equal(t, "model-a", best.ModelID)
	require.Equal(t, 1.0, best.MeanSuccessRate)
	require.InDelta(t, 0.4, out.Report.Rankings[1].MeanSuccessRate, 1e-9)
	require.NotEmpty(t, out.Report.Insights)
	require.Contains(t, out.Report.Insights[0], "success-rate spread")
}

func TestRunnerTransportFailuresStayInDenominator(t *testing.T) {
	sys := &matrixSystem{errs: map[string]error{"down": errors.New("transport: refused")}}

	out, err := Runner{System: sys, Trials: 4}.Run(context.Background(),
		[]Configuration{{ModelID: "down"}}, []TestCase{numericCase("arith")})
	require.NoError(t, err)

	stat := out.Outcomes[0].Stat
	require.Equal(t, 4, stat.Trials)
	require.Equal(t, 0.0, stat.SuccessRate)
	for _, r := range out.Outcomes[0].Results {
		require.Equal(t, "transport: refused", r.Error)
	}
}

func TestRunnerConcurrentPairsMatchSequential(t *testing.T) {
	configs := []Configuration{{ModelID: "model-a"}, {ModelID: "model-b"}}
	cases := []TestCase{numericCase("c1"), numericCase("c2"), numericCase("c3")}
	scripts := map[string][]string{
		"model-a": {"4"},
		"model-b": {"4", "nope"},
	}

	sequential, err := Runner{System: &matrixSystem{scripts: scripts}, Trials: 2, Workers: 1}.
		Run(context.Background(), configs, cases)
	require.NoError(t, err)

	concurrent, err := Runner{System: &matrixSystem{scripts: scripts}, Trials: 2, Workers: 4}.
		Run(context.Background(), configs, cases)
	require.NoError(t, err)

	// Pair order is deterministic regardless of worker count.
	require.Len(t, concurrent.Outcomes, 6)
	for i := range sequential.Outcomes {
		require.Equal(t, sequential.Outcomes[i].Stat.ConfigID, concurrent.Outcomes[i].Stat.ConfigID)
		require.Equal(t, sequential.Outcomes[i].Stat.TestCaseID, concurrent.Outcomes[i].Stat.TestCaseID)
		require.Equal(t, sequential.Outcomes[i].Stat.Trials, concurrent.Outcomes[i].Stat.Trials)
	}
}

func TestRunnerProgressCallback(t *testing.T) {
	sys := &matrixSystem{}
	var mu sync.Mutex
	var seen []int

	_, err := Runner{
		System: sys,
		Trials: 1,
		Progress: func(completed, total int) {
			mu.Lock()
			seen = append(seen, completed)
			require.Equal(t, 2, total)
			mu.Unlock()
		},
	}.Run(context.Background(),
		[]Configuration{{ModelID: "a"}, {ModelID: "b"}},
		[]TestCase{numericCase("c1")})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, seen)
}

func TestRunnerHonorsSharedLimiter(t *testing.T) {
	limiter, stop, err := NewRateLimiter(200, 1)
	require.NoError(t, err)
	defer stop()

	sys := &matrixSystem{}
	out, runErr := Runner{System: sys, Trials: 2, Limiter: limiter, Workers: 2}.
		Run(context.Background(),
			[]Configuration{{ModelID: "a"}},
			[]TestCase{numericCase("c1"), numericCase("c2")})
	require.NoError(t, runErr)
	require.Len(t, out.Outcomes, 2)
	for _, o := range out.Outcomes {
		require.Equal(t, 2, o.Stat.Trials)
	}
}

func TestRunnerCancelledRunStillCountsEveryTrial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sys := &matrixSystem{scripts: map[string][]string{"a": {"4"}}}
	out, err := Runner{System: sys, Trials: 3, Pause: 25 * time.Millisecond}.
		Run(ctx, []Configuration{{ModelID: "a"}}, []TestCase{numericCase("c1")})
	require.NoError(t, err)

	stat := out.Outcomes[0].Stat
	require.Equal(t, 3, stat.Trials)
	require.Equal(t, 0.0, stat.SuccessRate)
}

func mustPattern(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}
