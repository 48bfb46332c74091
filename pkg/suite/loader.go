package suite

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"aimatrix/pkg/core"
)

// CaseSpec is the external representation of one test case. The
// pattern is compiled and the kind validated at load time so a broken
// suite fails before any trial runs.
type CaseSpec struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Input           string            `json:"input"`
	ExpectedPattern string            `json:"expected_pattern,omitempty"`
	ExpectedKind    string            `json:"expected_kind,omitempty"`
	Difficulty      string            `json:"difficulty,omitempty"`
	Category        string            `json:"category,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Load reads test cases from a JSON array or JSONL file. Case ids
// must be unique within the suite; duplicates would silently merge in
// the statistics, so they are rejected here.
func Load(path string) ([]core.TestCase, error) {
	specs, err := loadSpecs(path)
	if err != nil {
		return nil, err
	}
	return FromSpecs(specs)
}

// FromSpecs builds a suite from in-memory specs with the same
// validation as Load.
func FromSpecs(specs []CaseSpec) ([]core.TestCase, error) {
	cases := make([]core.TestCase, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		tc, err := spec.TestCase()
		if err != nil {
			return nil, fmt.Errorf("suite: case %d: %w", i+1, err)
		}
		if _, dup := seen[tc.ID]; dup {
			return nil, fmt.Errorf("suite: duplicate case id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
		cases = append(cases, tc)
	}
	return cases, nil
}

// TestCase converts the external representation to the core type.
func (s CaseSpec) TestCase() (core.TestCase, error) {
	if s.ID == "" {
		return core.TestCase{}, errors.New("id is required")
	}
	if s.Input == "" {
		return core.TestCase{}, fmt.Errorf("case %q: input is required", s.ID)
	}

	kind := core.ExpectedKind(s.ExpectedKind)
	if s.ExpectedKind == "" {
		kind = core.ExpectAny
	}
	switch kind {
	case core.ExpectAny, core.ExpectNumeric, core.ExpectStructured:
	default:
		return core.TestCase{}, fmt.Errorf("case %q: unknown expected kind %q", s.ID, s.ExpectedKind)
	}

	var pattern *regexp.Regexp
	if s.ExpectedPattern != "" {
		compiled, err := regexp.Compile(s.ExpectedPattern)
		if err != nil {
			return core.TestCase{}, fmt.Errorf("case %q: invalid pattern: %w", s.ID, err)
		}
		pattern = compiled
	}

	name := s.Name
	if name == "" {
		name = s.ID
	}

	return core.TestCase{
		ID:              s.ID,
		Name:            name,
		Input:           s.Input,
		ExpectedPattern: pattern,
		ExpectedKind:    kind,
		Difficulty:      s.Difficulty,
		Category:        s.Category,
		Metadata:        s.Metadata,
	}, nil
}

func loadSpecs(path string) ([]CaseSpec, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "json":
		return loadJSON(path)
	case "jsonl":
		return loadJSONL(path)
	default:
		return nil, errors.New("suite: unsupported format")
	}
}

func detectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return "jsonl", nil
	case ".json":
		return "json", nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		if b == '[' {
			return "json", nil
		}
		if b == '{' {
			return "jsonl", nil
		}
		return "", errors.New("suite: unsupported format")
	}
}

func loadJSON(path string) ([]CaseSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var specs []CaseSpec
	if err := json.NewDecoder(file).Decode(&specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func loadJSONL(path string) ([]CaseSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	var specs []CaseSpec
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var spec CaseSpec
		if err := json.Unmarshal([]byte(line), &spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}
