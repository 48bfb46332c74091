package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"aimatrix/pkg/core"
)

// CSVReporter writes one row per (configuration, test case) pair, the
// shape most convenient for downstream spreadsheet analysis.
type CSVReporter struct {
	Writer io.Writer
}

func (r CSVReporter) Report(run core.RunOutcome) error {
	writer := csv.NewWriter(r.Writer)
	header := []string{
		"config_id", "model_id", "test_case_id", "trials",
		"success_rate", "consistency", "distinct_outputs",
		"latency_mean_ms", "latency_std_ms", "quality_mean", "quality_std",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, outcome := range run.Outcomes {
		stat := outcome.Stat
		row := []string{
			stat.ConfigID,
			stat.ModelID,
			stat.TestCaseID,
			strconv.Itoa(stat.Trials),
			formatFloat(stat.SuccessRate),
			formatFloat(stat.Consistency),
			strconv.Itoa(stat.DistinctOutputs),
			formatFloat(stat.LatencyMeanMS),
			formatFloat(stat.LatencyStdMS),
			formatFloat(stat.QualityMean),
			formatFloat(stat.QualityStd),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
