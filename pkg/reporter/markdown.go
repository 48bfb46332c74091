package reporter

import (
	"fmt"
	"io"

	"aimatrix/pkg/core"
)

type MarkdownReporter struct {
	Writer io.Writer
}

func (r MarkdownReporter) Report(run core.RunOutcome) error {
	if _, err := fmt.Fprintf(r.Writer, "# Configuration Comparison Report\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "- Started: %s\n- Finished: %s\n- Pairs evaluated: %d\n\n",
		run.StartedAt.Format("2006-01-02 15:04:05"),
		run.FinishedAt.Format("2006-01-02 15:04:05"),
		len(run.Outcomes)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(r.Writer, "## Ranking\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "| Rank | Config | Model | Success | Consistency |\n|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for i, entry := range run.Report.Rankings {
		if _, err := fmt.Fprintf(r.Writer, "| %d | %s | %s | %.1f%% | %.1f%% |\n",
			i+1, entry.ConfigID, escapePipe(entry.ModelID),
			entry.MeanSuccessRate*100, entry.MeanConsistency*100); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(r.Writer, "\n## Test case difficulty\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "| Case | Mean success | Difficulty |\n|---|---|---|\n"); err != nil {
		return err
	}
	for _, entry := range run.Report.Difficulty {
		if _, err := fmt.Fprintf(r.Writer, "| %s | %.1f%% | %s |\n",
			escapePipe(entry.TestCaseID), entry.MeanSuccessRate*100, entry.Difficulty); err != nil {
			return err
		}
	}

	if len(run.Report.Insights) > 0 {
		if _, err := fmt.Fprintf(r.Writer, "\n## Insights\n\n"); err != nil {
			return err
		}
		for _, insight := range run.Report.Insights {
			if _, err := fmt.Fprintf(r.Writer, "- %s\n", escapePipe(insight)); err != nil {
				return err
			}
		}
	}
	return nil
}

func escapePipe(input string) string {
	if input == "" {
		return ""
	}
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if r == '|' {
			out = append(out, '\\', r)
		} else if r == '\n' || r == '\r' {
			out = append(out, ' ')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
