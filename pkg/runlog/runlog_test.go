package runlog

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"aimatrix/pkg/core"

	"github.com/stretchr/testify/require"
)

func sampleRun(t *testing.T) core.RunOutcome {
	t.Helper()

	cfg := core.Configuration{ModelID: "model-pro", Temperature: 0.2}
	tc := core.TestCase{
		ID:              "distance",
		Name:            "distance formula",
		Input:           "Calculate the distance between (0,0) and (3,4)",
		ExpectedKind:    core.ExpectNumeric,
		ExpectedPattern: regexp.MustCompile(`^5`),
		Difficulty:      "easy",
	}

	results := []core.Result{
		{TestCaseID: tc.ID, ConfigID: cfg.Hash(), Success: true, Output: "5.0", HasOutput: true, Quality: 1.0, HasQuality: true, Latency: 120 * time.Millisecond},
		{TestCaseID: tc.ID, ConfigID: cfg.Hash(), Success: false, Error: "timeout", Latency: 2 * time.Second},
	}
	stat, err := core.Aggregate(cfg, tc, results)
	require.NoError(t, err)

	stats := []core.AggregatedStatistic{stat}
	return core.RunOutcome{
		Outcomes: []core.PairOutcome{
			{Config: cfg, Case: tc, Stat: stat, Results: results},
		},
		Report:     core.Analyze(stats),
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	run := sampleRun(t)
	log := FromRun(run, 2, 500*time.Millisecond)

	require.Equal(t, logVersion, log.Version)
	require.Equal(t, 2, log.Trials)
	require.Equal(t, 500, log.PauseMillis)
	require.Len(t, log.Configs, 1)
	require.Len(t, log.Cases, 1)
	require.Equal(t, "^5", log.Cases[0].ExpectedPattern)
	require.Len(t, log.Pairs, 1)

	dir := t.TempDir()
	path, err := Write(dir, log)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))

	loaded, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, log.Version, loaded.Version)
	require.Equal(t, log.Pairs[0].Stat, loaded.Pairs[0].Stat)
	require.Len(t, loaded.Pairs[0].Results, 2)
	require.Equal(t, log.Report.Rankings, loaded.Report.Rankings)
}

func TestFromRunDeduplicates(t *testing.T) {
	cfg := core.Configuration{ModelID: "model-pro"}
	caseA := core.TestCase{ID: "a", Input: "x", ExpectedKind: core.ExpectAny}
	caseB := core.TestCase{ID: "b", Input: "y", ExpectedKind: core.ExpectAny}

	run := core.RunOutcome{
		Outcomes: []core.PairOutcome{
			{Config: cfg, Case: caseA, Stat: core.AggregatedStatistic{ConfigID: cfg.Hash(), TestCaseID: "a"}},
			{Config: cfg, Case: caseB, Stat: core.AggregatedStatistic{ConfigID: cfg.Hash(), TestCaseID: "b"}},
		},
	}
	log := FromRun(run, 1, 0)
	require.Len(t, log.Configs, 1)
	require.Len(t, log.Cases, 2)
	require.Len(t, log.Pairs, 2)
}

func TestWriteRequiresDir(t *testing.T) {
	_, err := Write("", RunLog{})
	require.Error(t, err)
}

func TestFailingPairs(t *testing.T) {
	log := RunLog{Pairs: []PairRecord{
		{Stat: core.AggregatedStatistic{TestCaseID: "a", SuccessRate: 0.9}},
		{Stat: core.AggregatedStatistic{TestCaseID: "b", SuccessRate: 0.4}},
	}}
	failing := FailingPairs(log, 0.8)
	require.Len(t, failing, 1)
	require.Equal(t, "b", failing[0].Stat.TestCaseID)
}
