package llm

import (
	"encoding/json"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name: "verdict",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"valid":   map[string]any{"type": "boolean"},
				"reasons": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required":             []any{"valid"},
			"additionalProperties": false,
		},
	}
}

func TestValidateJSON_Accepts(t *testing.T) {
	raw := json.RawMessage(`{"valid": true, "reasons": []}`)
	if err := ValidateJSON(testSchema(), raw); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestValidateJSON_RejectsMissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"reasons": ["too brief"]}`)
	if err := ValidateJSON(testSchema(), raw); err == nil {
		t.Fatal("missing required field accepted")
	}
}

func TestValidateJSON_RejectsWrongType(t *testing.T) {
	raw := json.RawMessage(`{"valid": "yes"}`)
	if err := ValidateJSON(testSchema(), raw); err == nil {
		t.Fatal("wrong type accepted")
	}
}

func TestValidateJSON_RejectsMalformed(t *testing.T) {
	raw := json.RawMessage(`{"valid": tru`)
	if err := ValidateJSON(testSchema(), raw); err == nil {
		t.Fatal("malformed JSON accepted")
	}
}

func TestValidateJSON_NilSchemaPasses(t *testing.T) {
	raw := json.RawMessage(`anything at all`)
	if err := ValidateJSON(nil, raw); err != nil {
		t.Fatalf("nil schema must not validate: %v", err)
	}
}
