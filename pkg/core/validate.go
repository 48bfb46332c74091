package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Verdict is the validator's judgment of one raw output.
type Verdict struct {
	Valid   bool
	Quality float64
	Issues  []string
}

// Per-check quality multipliers. Checks are independently weighted so
// an output can earn partial credit: failing the pattern check while
// parsing cleanly scores higher than failing the type check.
const (
	typeCheckPenalty   = 0.5
	patternPenalty     = 0.7
	customErrorPenalty = 0.8
	customFailMinimum  = 0.3
)

// ValidateOutput checks a raw output against a test case's
// expectations. Valid is the conjunction of every applicable check;
// Quality is the product of the per-check multipliers clamped to
// [0, 1]. The custom hook can neither panic nor error its way out of
// a trial: both are captured as issues with a fixed penalty.
func ValidateOutput(output string, tc TestCase) Verdict {
	verdict := Verdict{Valid: true, Quality: 1.0}

	switch tc.ExpectedKind {
	case ExpectNumeric:
		if _, err := strconv.ParseFloat(strings.TrimSpace(output), 64); err != nil {
			verdict.Valid = false
			verdict.Quality *= typeCheckPenalty
			verdict.Issues = append(verdict.Issues, "output is not numeric")
		}
	case ExpectStructured:
		if !json.Valid([]byte(output)) {
			verdict.Valid = false
			verdict.Quality *= typeCheckPenalty
			verdict.Issues = append(verdict.Issues, "output is not a well-formed structured document")
		}
	}

	if tc.ExpectedPattern != nil && !tc.ExpectedPattern.MatchString(output) {
		verdict.Valid = false
		verdict.Quality *= patternPenalty
		verdict.Issues = append(verdict.Issues, fmt.Sprintf("output does not match pattern %q", tc.ExpectedPattern.String()))
	}

	if tc.Validate != nil {
		custom, err := runCustomValidator(output, tc)
		if err != nil {
			verdict.Quality *= customErrorPenalty
			verdict.Issues = append(verdict.Issues, fmt.Sprintf("custom validation error: %v", err))
		} else {
			multiplier := custom.QualityMultiplier
			if multiplier == 0 {
				multiplier = 1.0
			}
			verdict.Quality *= multiplier
			if !custom.Valid {
				verdict.Valid = false
				if len(custom.Issues) == 0 {
					verdict.Quality *= customFailMinimum
					verdict.Issues = append(verdict.Issues, "custom validation failed")
				} else {
					verdict.Issues = append(verdict.Issues, custom.Issues...)
				}
			}
		}
	}

	if verdict.Quality < 0 {
		verdict.Quality = 0
	}
	if verdict.Quality > 1 {
		verdict.Quality = 1
	}
	return verdict
}

func runCustomValidator(output string, tc TestCase) (verdict CustomVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return tc.Validate(output, tc)
}
