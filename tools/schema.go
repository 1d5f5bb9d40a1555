package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// JSONSchemaFor derives a JSON Schema document from a Go struct, for tools
// that would rather describe their input shape with a type than hand-build
// a []ToolParameter list.
func JSONSchemaFor(v interface{}) map[string]any {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// DecodeArgs decodes a tool call's loosely-typed argument map into a typed
// struct, the way a ToolCall's Parameters reach an agent-defined handler.
func DecodeArgs(args map[string]interface{}, into interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           into,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("build arg decoder: %w", err)
	}
	return decoder.Decode(args)
}
