package core

import "time"

// Result records the outcome of one trial. Produced exactly once by
// the engine, immutable afterwards.
//
// Success is true only when the capability call succeeded AND the
// validator accepted the output; a rejected output is never successful
// even if the call itself came back clean.
type Result struct {
	TestCaseID string        `json:"test_case_id" yaml:"test_case_id"`
	ConfigID   string        `json:"config_id" yaml:"config_id"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	Success    bool          `json:"success" yaml:"success"`
	Output     string        `json:"output,omitempty" yaml:"output,omitempty"`
	HasOutput  bool          `json:"has_output" yaml:"has_output"`
	Latency    time.Duration `json:"latency" yaml:"latency"`
	Quality    float64       `json:"quality,omitempty" yaml:"quality,omitempty"`
	HasQuality bool          `json:"has_quality" yaml:"has_quality"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Issues     []string      `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// AggregatedStatistic summarizes all trials of one
// (configuration, test case) pair. Trials is always >= 1; with a
// single trial the deviation fields are zero, not undefined.
type AggregatedStatistic struct {
	ConfigID        string  `json:"config_id" yaml:"config_id"`
	ModelID         string  `json:"model_id" yaml:"model_id"`
	TestCaseID      string  `json:"test_case_id" yaml:"test_case_id"`
	TestCaseName    string  `json:"test_case_name" yaml:"test_case_name"`
	Trials          int     `json:"trials" yaml:"trials"`
	SuccessRate     float64 `json:"success_rate" yaml:"success_rate"`
	LatencyMeanMS   float64 `json:"latency_mean_ms" yaml:"latency_mean_ms"`
	LatencyStdMS    float64 `json:"latency_std_ms" yaml:"latency_std_ms"`
	QualityMean     float64 `json:"quality_mean" yaml:"quality_mean"`
	QualityStd      float64 `json:"quality_std" yaml:"quality_std"`
	Consistency     float64 `json:"consistency" yaml:"consistency"`
	DistinctOutputs int     `json:"distinct_outputs" yaml:"distinct_outputs"`
}
