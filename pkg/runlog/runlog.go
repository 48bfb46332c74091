package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aimatrix/pkg/core"
)

// RunLog is the persisted record of one matrix run: enough to
// regenerate every report without re-running a single trial.
type RunLog struct {
	Version     int                   `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	Trials      int                   `json:"trials"`
	PauseMillis int                   `json:"pause_millis"`
	Configs     []core.Configuration  `json:"configs"`
	Cases       []CaseRecord          `json:"cases"`
	Pairs       []PairRecord          `json:"pairs"`
	Report      core.ComparisonReport `json:"report"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// CaseRecord is the serializable projection of a test case; compiled
// patterns and custom validation hooks do not survive a round trip.
type CaseRecord struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Input           string `json:"input"`
	ExpectedKind    string `json:"expected_kind"`
	ExpectedPattern string `json:"expected_pattern,omitempty"`
	Difficulty      string `json:"difficulty,omitempty"`
	Category        string `json:"category,omitempty"`
}

// PairRecord keeps a pair's statistic together with its raw trials.
type PairRecord struct {
	Stat    core.AggregatedStatistic `json:"stat"`
	Results []core.Result            `json:"results"`
}

const logVersion = 1

// FromRun projects a finished run into its persistent form.
// Configurations and cases are deduplicated in first-seen order.
func FromRun(run core.RunOutcome, trials int, pause time.Duration) RunLog {
	log := RunLog{
		Version:     logVersion,
		CreatedAt:   time.Now().UTC(),
		Trials:      trials,
		PauseMillis: int(pause / time.Millisecond),
		Report:      run.Report,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}

	seenConfigs := make(map[string]struct{})
	seenCases := make(map[string]struct{})
	for _, outcome := range run.Outcomes {
		configID := outcome.Stat.ConfigID
		if _, ok := seenConfigs[configID]; !ok {
			seenConfigs[configID] = struct{}{}
			log.Configs = append(log.Configs, outcome.Config)
		}
		caseID := outcome.Stat.TestCaseID
		if _, ok := seenCases[caseID]; !ok {
			seenCases[caseID] = struct{}{}
			record := CaseRecord{
				ID:           outcome.Case.ID,
				Name:         outcome.Case.Name,
				Input:        outcome.Case.Input,
				ExpectedKind: string(outcome.Case.ExpectedKind),
				Difficulty:   outcome.Case.Difficulty,
				Category:     outcome.Case.Category,
			}
			if outcome.Case.ExpectedPattern != nil {
				record.ExpectedPattern = outcome.Case.ExpectedPattern.String()
			}
			log.Cases = append(log.Cases, record)
		}
		log.Pairs = append(log.Pairs, PairRecord{
			Stat:    outcome.Stat,
			Results: outcome.Results,
		})
	}
	return log
}

// Write stores the log as pretty-printed JSON under dir and returns
// the file path.
func Write(dir string, log RunLog) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("runlog: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_run.json", time.Now().Format("2006-01-02T15-04-05"))
	path := filepath.Join(dir, filename)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(log); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads a previously written log.
func Read(path string) (RunLog, error) {
	file, err := os.Open(path)
	if err != nil {
		return RunLog{}, err
	}
	defer file.Close()

	var log RunLog
	if err := json.NewDecoder(file).Decode(&log); err != nil {
		return RunLog{}, err
	}
	return log, nil
}

// FailingPairs returns the pairs whose success rate fell below the
// threshold, in run order. Handy for triaging what to reproduce.
func FailingPairs(log RunLog, threshold float64) []PairRecord {
	var out []PairRecord
	for _, pair := range log.Pairs {
		if pair.Stat.SuccessRate < threshold {
			out = append(out, pair)
		}
	}
	return out
}
