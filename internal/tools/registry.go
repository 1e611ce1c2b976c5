package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition is one callable tool. Function receives the raw JSON
// arguments produced by the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// GenerateSchema derives an inline JSON schema for T.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Find returns the definition named name, or nil.
func Find(defs []ToolDefinition, name string) *ToolDefinition {
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i]
		}
	}
	return nil
}

// decode unmarshals tool arguments, treating empty input as "{}".
func decode(input json.RawMessage, v any) error {
	if len(input) == 0 || string(input) == "null" {
		return nil
	}
	return json.Unmarshal(input, v)
}
