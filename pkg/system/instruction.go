package system

import (
	"encoding/json"

	"aimatrix/pkg/core"
)

// renderInstruction combines a configuration's system instruction with
// the structured-output constraint for providers that take format
// hints as instructions rather than native request fields. The schema
// travels verbatim; the core never interprets it.
func renderInstruction(cfg core.Configuration) string {
	instruction := cfg.SystemInstruction
	if cfg.OutputMode != core.OutputStructured {
		return instruction
	}

	suffix := "Respond with a single valid JSON object and nothing else."
	if cfg.OutputSchema != nil {
		if data, err := json.Marshal(cfg.OutputSchema); err == nil {
			suffix += " The object must conform to this JSON schema: " + string(data)
		}
	}

	if instruction == "" {
		return suffix
	}
	return instruction + "\n\n" + suffix
}
