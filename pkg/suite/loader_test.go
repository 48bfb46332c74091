package suite

import (
	"os"
	"path/filepath"
	"testing"

	"aimatrix/pkg/core"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONSuite(t *testing.T) {
	path := writeFile(t, "suite.json", `[
		{"id": "distance", "name": "Distance Calculation", "input": "Calculate distance between A(2,3) and B(8,7)", "expected_kind": "numeric", "expected_pattern": "\\d+\\.?\\d*", "category": "geometry"},
		{"id": "equations", "input": "Solve: 2x + 3y = 7 and x - y = 1", "expected_pattern": "\\{.*\\}"}
	]`)

	cases, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	require.Equal(t, "distance", cases[0].ID)
	require.Equal(t, "Distance Calculation", cases[0].Name)
	require.Equal(t, core.ExpectNumeric, cases[0].ExpectedKind)
	require.NotNil(t, cases[0].ExpectedPattern)
	require.True(t, cases[0].ExpectedPattern.MatchString("7.21"))

	// Name falls back to id, kind to "any".
	require.Equal(t, "equations", cases[1].Name)
	require.Equal(t, core.ExpectAny, cases[1].ExpectedKind)
}

func TestLoadJSONLSuite(t *testing.T) {
	path := writeFile(t, "suite.jsonl",
		`{"id": "a", "input": "1+1", "expected_kind": "numeric"}
{"id": "b", "input": "2+2", "expected_kind": "numeric"}
`)

	cases, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
}

func TestLoadDetectsFormatWithoutExtension(t *testing.T) {
	path := writeFile(t, "suite", `[{"id": "a", "input": "x"}]`)
	cases, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := writeFile(t, "dup.json", `[
		{"id": "same", "input": "x"},
		{"id": "same", "input": "y"}
	]`)

	_, err := Load(path)
	require.ErrorContains(t, err, "duplicate case id")
}

func TestLoadRejectsInvalidPattern(t *testing.T) {
	path := writeFile(t, "bad.json", `[{"id": "a", "input": "x", "expected_pattern": "("}]`)
	_, err := Load(path)
	require.ErrorContains(t, err, "invalid pattern")
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeFile(t, "kind.json", `[{"id": "a", "input": "x", "expected_kind": "hologram"}]`)
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown expected kind")
}

func TestLoadRejectsMissingInput(t *testing.T) {
	path := writeFile(t, "missing.json", `[{"id": "a"}]`)
	_, err := Load(path)
	require.ErrorContains(t, err, "input is required")
}

func TestFromSpecs(t *testing.T) {
	cases, err := FromSpecs([]CaseSpec{
		{ID: "a", Input: "1+1", ExpectedKind: "numeric"},
		{ID: "b", Input: "2+2"},
	})
	require.NoError(t, err)
	require.Len(t, cases, 2)
	require.Equal(t, core.ExpectAny, cases[1].ExpectedKind)

	_, err = FromSpecs([]CaseSpec{
		{ID: "a", Input: "x"},
		{ID: "a", Input: "y"},
	})
	require.Error(t, err)
}
