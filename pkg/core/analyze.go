package core

import (
	"fmt"
	"sort"
)

// Difficulty buckets for test cases, fixed policy thresholds over the
// mean success rate across configurations.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	easyThreshold = 0.8
	hardThreshold = 0.5

	successSpreadAdvisory     = 0.2
	consistencySpreadAdvisory = 0.3

	// A pair passes when it succeeds in at least 80% of its trials.
	passRateThreshold = 0.8
)

// ConfigRanking is one configuration's standing across every test
// case it was evaluated against.
type ConfigRanking struct {
	ConfigID        string  `json:"config_id" yaml:"config_id"`
	ModelID         string  `json:"model_id" yaml:"model_id"`
	MeanSuccessRate float64 `json:"mean_success_rate" yaml:"mean_success_rate"`
	MeanConsistency float64 `json:"mean_consistency" yaml:"mean_consistency"`
	CasesEvaluated  int     `json:"cases_evaluated" yaml:"cases_evaluated"`
	CasesPassed     int     `json:"cases_passed" yaml:"cases_passed"`
}

// CaseDifficulty classifies one test case from its mean success rate
// across all configurations.
type CaseDifficulty struct {
	TestCaseID        string  `json:"test_case_id" yaml:"test_case_id"`
	TestCaseName      string  `json:"test_case_name" yaml:"test_case_name"`
	MeanSuccessRate   float64 `json:"mean_success_rate" yaml:"mean_success_rate"`
	Difficulty        string  `json:"difficulty" yaml:"difficulty"`
	CrossConfigSpread float64 `json:"cross_config_spread" yaml:"cross_config_spread"`
}

// ComparisonReport is a read-only view over a full run's aggregated
// statistics: configurations ranked best-first plus a difficulty
// classification per test case. It is recomputed fresh on every
// analysis pass.
type ComparisonReport struct {
	Rankings   []ConfigRanking  `json:"rankings" yaml:"rankings"`
	Difficulty []CaseDifficulty `json:"difficulty" yaml:"difficulty"`
	Insights   []string         `json:"insights,omitempty" yaml:"insights,omitempty"`
}

// Best returns the top-ranked configuration, if any.
func (r ComparisonReport) Best() (ConfigRanking, bool) {
	if len(r.Rankings) == 0 {
		return ConfigRanking{}, false
	}
	return r.Rankings[0], true
}

// Analyze derives a ComparisonReport from the full matrix of
// aggregated statistics. Configurations sort descending by mean
// success rate with mean consistency as the tiebreak; remaining ties
// keep insertion order. An empty statistics set yields an empty
// report; "no data yet" is a valid state, not an error.
func Analyze(stats []AggregatedStatistic) ComparisonReport {
	report := ComparisonReport{}

	configOrder := make([]string, 0)
	configStats := make(map[string][]AggregatedStatistic)
	caseOrder := make([]string, 0)
	caseStats := make(map[string][]AggregatedStatistic)

	for _, s := range stats {
		if _, seen := configStats[s.ConfigID]; !seen {
			configOrder = append(configOrder, s.ConfigID)
		}
		configStats[s.ConfigID] = append(configStats[s.ConfigID], s)
		if _, seen := caseStats[s.TestCaseID]; !seen {
			caseOrder = append(caseOrder, s.TestCaseID)
		}
		caseStats[s.TestCaseID] = append(caseStats[s.TestCaseID], s)
	}

	for _, id := range configOrder {
		group := configStats[id]
		ranking := ConfigRanking{
			ConfigID:       id,
			ModelID:        group[0].ModelID,
			CasesEvaluated: len(group),
		}
		var successSum, consistencySum float64
		for _, s := range group {
			successSum += s.SuccessRate
			consistencySum += s.Consistency
			if s.SuccessRate >= passRateThreshold {
				ranking.CasesPassed++
			}
		}
		ranking.MeanSuccessRate = successSum / float64(len(group))
		ranking.MeanConsistency = consistencySum / float64(len(group))
		report.Rankings = append(report.Rankings, ranking)
	}

	sort.SliceStable(report.Rankings, func(i, j int) bool {
		a, b := report.Rankings[i], report.Rankings[j]
		if a.MeanSuccessRate != b.MeanSuccessRate {
			return a.MeanSuccessRate > b.MeanSuccessRate
		}
		return a.MeanConsistency > b.MeanConsistency
	})

	for _, id := range caseOrder {
		group := caseStats[id]
		var sum float64
		lo, hi := group[0].SuccessRate, group[0].SuccessRate
		for _, s := range group {
			sum += s.SuccessRate
			if s.SuccessRate < lo {
				lo = s.SuccessRate
			}
			if s.SuccessRate > hi {
				hi = s.SuccessRate
			}
		}
		m := sum / float64(len(group))
		report.Difficulty = append(report.Difficulty, CaseDifficulty{
			TestCaseID:        id,
			TestCaseName:      group[0].TestCaseName,
			MeanSuccessRate:   m,
			Difficulty:        classifyDifficulty(m),
			CrossConfigSpread: hi - lo,
		})
	}

	report.Insights = deriveInsights(report.Rankings)
	return report
}

func classifyDifficulty(meanSuccessRate float64) string {
	switch {
	case meanSuccessRate > easyThreshold:
		return DifficultyEasy
	case meanSuccessRate > hardThreshold:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// deriveInsights surfaces advisory observations about spread between
// configurations. They never feed back into the ranking.
func deriveInsights(rankings []ConfigRanking) []string {
	if len(rankings) < 2 {
		return nil
	}

	var insights []string

	best := rankings[0].MeanSuccessRate
	worst := rankings[len(rankings)-1].MeanSuccessRate
	if best-worst > successSpreadAdvisory {
		insights = append(insights, fmt.Sprintf(
			"significant success-rate spread between configurations: %.1f%% vs %.1f%%",
			best*100, worst*100))
	}

	loC, hiC := rankings[0].MeanConsistency, rankings[0].MeanConsistency
	for _, r := range rankings[1:] {
		if r.MeanConsistency < loC {
			loC = r.MeanConsistency
		}
		if r.MeanConsistency > hiC {
			hiC = r.MeanConsistency
		}
	}
	if hiC-loC > consistencySpreadAdvisory {
		insights = append(insights, "large consistency variation between configurations")
	}

	return insights
}
