package core

import "regexp"

// ExpectedKind declares how a test case's output should parse before
// any pattern or custom checks run.
type ExpectedKind string

const (
	ExpectAny        ExpectedKind = "any"
	ExpectNumeric    ExpectedKind = "numeric"
	ExpectStructured ExpectedKind = "structured"
)

// CustomVerdict is the outcome of a test case's custom validation
// hook. A zero QualityMultiplier is treated as 1.
type CustomVerdict struct {
	Valid             bool
	Issues            []string
	QualityMultiplier float64
}

// CustomValidator lets a test case apply checks beyond type and
// pattern matching, e.g. grading a produced artifact against a
// secondary ground truth. A returned error is recorded as a validation
// issue with a fixed quality penalty and never aborts the trial.
type CustomValidator func(output string, tc TestCase) (CustomVerdict, error)

// TestCase is one fixed input plus the criteria a correct output must
// satisfy. Immutable; referenced, not copied, by every trial.
type TestCase struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	Input           string            `json:"input" yaml:"input"`
	ExpectedPattern *regexp.Regexp    `json:"-" yaml:"-"`
	ExpectedKind    ExpectedKind      `json:"expected_kind" yaml:"expected_kind"`
	Validate        CustomValidator   `json:"-" yaml:"-"`
	Difficulty      string            `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Category        string            `json:"category,omitempty" yaml:"category,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
