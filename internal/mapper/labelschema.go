package mapper

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// labelFileSchema describes the converted label file shape. Every produced
// labels.json is validated against it before being written, so a conversion
// bug fails the record instead of poisoning a training run.
const labelFileSchema = `{
    "$schema": "https://json-schema.org/draft/2020-12/schema",
    "type": "object",
    "required": ["$schema", "fileId", "fieldLabels", "metadata"],
    "properties": {
        "$schema": {"type": "string"},
        "fileId": {"type": "string"},
        "metadata": {"type": "object"},
        "fieldLabels": {
            "type": "object",
            "additionalProperties": {"$ref": "#/$defs/label"}
        }
    },
    "$defs": {
        "label": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {
                    "enum": ["string", "date", "time", "number", "integer", "boolean", "array", "object"]
                },
                "kind": {"type": "string"},
                "spans": {"type": "array"},
                "confidence": {"type": ["number", "null"]},
                "source": {"type": "string"},
                "metadata": {"type": "object"},
                "valueString": {"type": "string"},
                "valueDate": {"type": "string"},
                "valueTime": {"type": "string"},
                "valueNumber": {"type": "number"},
                "valueInteger": {"type": "integer"},
                "valueBoolean": {"type": "boolean"},
                "valueArray": {
                    "type": "array",
                    "items": {"$ref": "#/$defs/label"}
                },
                "valueObject": {
                    "type": "object",
                    "additionalProperties": {"$ref": "#/$defs/label"}
                }
            }
        }
    }
}`

var compileLabelSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("labels.json", labelFileSchema)
})

// validateLabelFile checks a converted label document against the label file
// schema.
func validateLabelFile(labels map[string]any) error {
	schema, err := compileLabelSchema()
	if err != nil {
		return fmt.Errorf("failed to compile label schema: %w", err)
	}
	if err := schema.Validate(normalizeForValidation(labels)); err != nil {
		return &SchemaError{Reason: fmt.Sprintf("converted labels do not match the label schema: %v", err)}
	}
	return nil
}

// normalizeForValidation rewrites typed values the converter produces (int64,
// []float64) into the plain shapes the validator expects from decoded JSON.
func normalizeForValidation(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForValidation(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForValidation(val)
		}
		return out
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return v
	}
}
