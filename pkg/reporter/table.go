package reporter

import (
	"fmt"
	"io"

	"aimatrix/pkg/core"

	"github.com/olekukonko/tablewriter"
)

type TableReporter struct {
	Writer io.Writer
}

func (r TableReporter) Report(run core.RunOutcome) error {
	fmt.Fprintln(r.Writer, "Configuration ranking")
	ranking := tablewriter.NewWriter(r.Writer)
	ranking.Header([]string{"Rank", "Config", "Model", "Success", "Consistency", "Passed"})
	for i, entry := range run.Report.Rankings {
		ranking.Append([]string{
			fmt.Sprintf("%d", i+1),
			entry.ConfigID,
			entry.ModelID,
			fmt.Sprintf("%.1f%%", entry.MeanSuccessRate*100),
			fmt.Sprintf("%.1f%%", entry.MeanConsistency*100),
			fmt.Sprintf("%d/%d", entry.CasesPassed, entry.CasesEvaluated),
		})
	}
	ranking.Render()

	fmt.Fprintln(r.Writer, "\nTest case difficulty")
	difficulty := tablewriter.NewWriter(r.Writer)
	difficulty.Header([]string{"Case", "Mean success", "Difficulty", "Spread"})
	for _, entry := range run.Report.Difficulty {
		difficulty.Append([]string{
			entry.TestCaseID,
			fmt.Sprintf("%.1f%%", entry.MeanSuccessRate*100),
			entry.Difficulty,
			fmt.Sprintf("%.2f", entry.CrossConfigSpread),
		})
	}
	difficulty.Render()

	fmt.Fprintln(r.Writer, "\nPer-pair statistics")
	pairs := tablewriter.NewWriter(r.Writer)
	pairs.Header([]string{"Config", "Case", "Trials", "Success", "Consistency", "Outputs", "Latency (ms)", "Quality"})
	for _, outcome := range run.Outcomes {
		stat := outcome.Stat
		pairs.Append([]string{
			stat.ConfigID,
			stat.TestCaseID,
			fmt.Sprintf("%d", stat.Trials),
			fmt.Sprintf("%.1f%%", stat.SuccessRate*100),
			fmt.Sprintf("%.2f", stat.Consistency),
			fmt.Sprintf("%d", stat.DistinctOutputs),
			fmt.Sprintf("%.0f ± %.0f", stat.LatencyMeanMS, stat.LatencyStdMS),
			fmt.Sprintf("%.2f ± %.2f", stat.QualityMean, stat.QualityStd),
		})
	}
	pairs.Render()

	if len(run.Report.Insights) > 0 {
		fmt.Fprintln(r.Writer, "\nInsights")
		for _, insight := range run.Report.Insights {
			fmt.Fprintf(r.Writer, "  - %s\n", insight)
		}
	}
	return nil
}
