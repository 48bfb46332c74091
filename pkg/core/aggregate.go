package core

import (
	"errors"
	"math"
	"time"
)

// ErrNoTrials reports aggregation over an empty trial set, which has
// no statistically valid interpretation and indicates a caller bug.
var ErrNoTrials = errors.New("aggregate: no trials")

// Aggregate reduces the results of one (configuration, test case)
// pair into summary statistics. Quality moments cover only trials
// where the capability call succeeded; a failed call contributes no
// quality sample rather than a zero. The consistency score is
// 1/distinct-outputs over trials that produced output, 0 when none
// did; it rewards determinism independent of correctness.
func Aggregate(cfg Configuration, tc TestCase, results []Result) (AggregatedStatistic, error) {
	if len(results) == 0 {
		return AggregatedStatistic{}, ErrNoTrials
	}

	var successes int
	latencies := make([]float64, 0, len(results))
	qualities := make([]float64, 0, len(results))
	distinct := make(map[string]struct{})

	for _, r := range results {
		if r.Success {
			successes++
		}
		latencies = append(latencies, float64(r.Latency)/float64(time.Millisecond))
		if r.HasQuality {
			qualities = append(qualities, r.Quality)
		}
		if r.HasOutput {
			distinct[r.Output] = struct{}{}
		}
	}

	consistency := 0.0
	if len(distinct) > 0 {
		consistency = 1.0 / float64(len(distinct))
	}

	return AggregatedStatistic{
		ConfigID:        cfg.Hash(),
		ModelID:         cfg.ModelID,
		TestCaseID:      tc.ID,
		TestCaseName:    tc.Name,
		Trials:          len(results),
		SuccessRate:     float64(successes) / float64(len(results)),
		LatencyMeanMS:   mean(latencies),
		LatencyStdMS:    stddev(latencies),
		QualityMean:     mean(qualities),
		QualityStd:      stddev(qualities),
		Consistency:     consistency,
		DistinctOutputs: len(distinct),
	}, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation. Fewer than two samples
// yield zero, not NaN.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
