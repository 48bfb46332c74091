package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PairOutcome holds everything produced for one
// (configuration, test case) pair: the ordered trial results and the
// statistic reduced from them once the whole series finished.
type PairOutcome struct {
	Config  Configuration       `json:"config" yaml:"config"`
	Case    TestCase            `json:"case" yaml:"case"`
	Stat    AggregatedStatistic `json:"stat" yaml:"stat"`
	Results []Result            `json:"results" yaml:"results"`
}

// RunOutcome is the product of one full matrix run.
type RunOutcome struct {
	Outcomes   []PairOutcome    `json:"outcomes" yaml:"outcomes"`
	Report     ComparisonReport `json:"report" yaml:"report"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
}

// Runner executes the full configuration × test-case matrix. Pairs are
// independent and fan out over Workers goroutines; the trials inside a
// pair always run strictly sequentially with at least Pause between
// calls, and a pair is aggregated only after its last trial returns.
// Workers=1 reproduces a fully sequential run.
type Runner struct {
	System   System
	Trials   int
	Pause    time.Duration
	Workers  int
	Limiter  RateLimiter
	Progress func(completed, total int)
}

// Run evaluates every configuration against every test case and
// returns the per-pair outcomes in deterministic configuration-major
// order together with the comparison report. Trial-level failures are
// data, not errors; cancelling ctx drains the remaining trials as
// recorded failures rather than omitting them.
func (r Runner) Run(ctx context.Context, configs []Configuration, cases []TestCase) (RunOutcome, error) {
	if r.System == nil {
		return RunOutcome{}, errors.New("runner: system is required")
	}
	if r.Trials < 1 {
		return RunOutcome{}, errors.New("runner: trials must be >= 1")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	sys := r.System
	if r.Limiter != nil {
		sys = limitedSystem{inner: r.System, limiter: r.Limiter}
	}
	engine := Engine{System: sys}

	type pair struct {
		config Configuration
		tc     TestCase
	}
	pairs := make([]pair, 0, len(configs)*len(cases))
	for _, cfg := range configs {
		for _, tc := range cases {
			pairs = append(pairs, pair{config: cfg, tc: tc})
		}
	}

	started := time.Now().UTC()
	outcomes := make([]PairOutcome, len(pairs))

	jobs := make(chan int)
	type indexed struct {
		idx int
		err error
	}
	done := make(chan indexed, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := pairs[idx]
				results := engine.RunSeries(ctx, p.config, p.tc, r.Trials, r.Pause)
				stat, err := Aggregate(p.config, p.tc, results)
				outcomes[idx] = PairOutcome{
					Config:  p.config,
					Case:    p.tc,
					Stat:    stat,
					Results: results,
				}
				done <- indexed{idx: idx, err: err}
			}
		}()
	}

	go func() {
		for idx := range pairs {
			jobs <- idx
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	var firstErr error
	completed := 0
	for item := range done {
		if item.err != nil && firstErr == nil {
			firstErr = item.err
		}
		completed++
		if r.Progress != nil {
			r.Progress(completed, len(pairs))
		}
	}
	if firstErr != nil {
		return RunOutcome{}, firstErr
	}

	stats := make([]AggregatedStatistic, len(outcomes))
	for i, outcome := range outcomes {
		stats[i] = outcome.Stat
	}

	return RunOutcome{
		Outcomes:   outcomes,
		Report:     Analyze(stats),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}, nil
}

// limitedSystem gates every outbound call on the shared rate limiter.
type limitedSystem struct {
	inner   System
	limiter RateLimiter
}

func (l limitedSystem) Name() string {
	return l.inner.Name()
}

func (l limitedSystem) Invoke(ctx context.Context, cfg Configuration, input string) (Invocation, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Invocation{}, err
	}
	return l.inner.Invoke(ctx, cfg, input)
}
