package reporter

import "aimatrix/pkg/core"

// Reporter renders a finished matrix run.
type Reporter interface {
	Report(run core.RunOutcome) error
}

const (
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)
