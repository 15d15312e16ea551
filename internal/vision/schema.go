package vision

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema describes the types of the model's JSON object. Presence
// and enum membership are checked by ParseResponse before this runs, so the
// schema only has to catch values of the wrong type.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category":    map[string]any{"type": "string"},
		"condition":   map[string]any{"type": "string"},
		"confidence":  map[string]any{"type": []string{"number", "string"}},
		"brand":       map[string]any{"type": []string{"string", "null"}},
		"model":       map[string]any{"type": []string{"string", "null"}},
		"seo_title":   map[string]any{"type": []string{"string", "null"}},
		"description": map[string]any{"type": []string{"string", "null"}},
		"tags": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"estimated_value": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"low":        map[string]any{"type": []string{"number", "string"}},
				"mid":        map[string]any{"type": []string{"number", "string"}},
				"high":       map[string]any{"type": []string{"number", "string"}},
				"currency":   map[string]any{"type": []string{"string", "null"}},
				"confidence": map[string]any{"type": []string{"number", "string", "null"}},
			},
			"required": []string{"low", "mid", "high"},
		},
	},
	"required": []string{"category", "condition", "confidence", "estimated_value"},
}

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func compileResponseSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		b, err := json.Marshal(responseSchema)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("response.json", strings.NewReader(string(b))); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("response.json")
		if compiledSchemaErr != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", compiledSchemaErr)
		}
	})
	return compiledSchema, compiledSchemaErr
}

// validateResponseTypes checks a decoded response document against responseSchema.
func validateResponseTypes(doc any) error {
	schema, err := compileResponseSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
