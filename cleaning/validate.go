package cleaning

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// tableSchema constrains a table-mode JSON payload: an array of rows, each
// an array of string cells. When the column count is known it is enforced
// here so miscounted payloads trigger a retry rather than reaching the
// reconciler.
func tableSchema(columns int) map[string]any {
	items := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	if columns > 0 {
		items["minItems"] = columns
		items["maxItems"] = columns
	}
	return map[string]any{
		"type":  "array",
		"items": items,
	}
}

// metadataSchema constrains a metadata-mode payload: an array of field
// descriptors. "name" and "text" are required; "value" stays free-typed
// until coercion.
func metadataSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"zh_name": map[string]any{"type": "string"},
				"name":    map[string]any{"type": "string", "minLength": 1},
				"text":    map[string]any{"type": "string"},
				"value":   map[string]any{},
			},
			"required":             []string{"name", "text"},
			"additionalProperties": false,
		},
	}
}

// validateAgainstSchema validates data against a generic schema map.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
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
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
