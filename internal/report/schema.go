package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// Schema describes the JSON report document.
func Schema() map[string]any {
	confidence := map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}}
	number := func(pattern string) map[string]any {
		return map[string]any{
			"type":     "object",
			"required": []string{"value", "display", "confidence", "method"},
			"properties": map[string]any{
				"value":      map[string]any{"type": "string", "pattern": pattern},
				"display":    map[string]any{"type": "string"},
				"confidence": confidence,
				"method":     map[string]any{"type": "string", "enum": []string{"strict-pattern", "relaxed-pattern", "llm"}},
			},
		}
	}
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"run_id", "source", "confidence", "details", "passes", "fallback", "processing_ms"},
		"properties": map[string]any{
			"run_id":     map[string]any{"type": "string"},
			"source":     map[string]any{"type": "string"},
			"aadhaar":    number(`^[0-9]{12}$`),
			"pan":        number(`^[A-Z]{5}[0-9]{4}[A-Z]$`),
			"confidence": confidence,
			"details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"document_type": map[string]any{"type": "string", "enum": append(constants.DocumentTypeStrings(), "")},
				},
			},
			"warnings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"passes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"pass", "chars"},
				},
			},
			"fallback": map[string]any{
				"type":     "object",
				"required": []string{"invoked"},
				"properties": map[string]any{
					"invoked": map[string]any{"type": "boolean"},
					"failure": map[string]any{"type": "string"},
				},
			},
			"processing_ms": map[string]any{"type": "number", "minimum": 0},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
