package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// OutputMode constrains the shape of output requested from the system
// under test.
type OutputMode string

const (
	OutputFreeText   OutputMode = "free_text"
	OutputStructured OutputMode = "structured"
)

// Configuration is one immutable parameterization of the system under
// test. Construct it once before a run; never mutate it afterwards.
type Configuration struct {
	ModelID           string         `json:"model_id" yaml:"model_id"`
	ModelVersion      string         `json:"model_version" yaml:"model_version"`
	Temperature       float64        `json:"temperature" yaml:"temperature"`
	TopK              *int           `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	TopP              *float64       `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxOutputTokens   int            `json:"max_output_tokens" yaml:"max_output_tokens"`
	SystemInstruction string         `json:"system_instruction,omitempty" yaml:"system_instruction,omitempty"`
	OutputMode        OutputMode     `json:"output_mode" yaml:"output_mode"`
	OutputSchema      map[string]any `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
}

// Hash returns a stable content-derived identifier for the
// configuration. Two configurations with identical attributes hash the
// same regardless of how they were assembled; the digest keys
// aggregation buckets and must not change across runs.
func (c Configuration) Hash() string {
	canonical := map[string]any{
		"model_id":           c.ModelID,
		"model_version":      c.ModelVersion,
		"temperature":        c.Temperature,
		"top_k":              c.TopK,
		"top_p":              c.TopP,
		"max_output_tokens":  c.MaxOutputTokens,
		"system_instruction": c.SystemInstruction,
		"output_mode":        string(c.OutputMode),
		"output_schema":      c.OutputSchema,
	}

	// json.Marshal emits map keys in sorted order, which makes the
	// serialization canonical at every nesting level.
	data, err := json.Marshal(canonical)
	if err != nil {
		// Only unmarshalable schema values can land here; fall back to
		// the fields that always marshal.
		data = []byte(c.ModelID + "/" + c.ModelVersion + "/" + string(c.OutputMode))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
