package pluginbridge

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toMCPSchema converts our jsonschema.Schema (shared with the registry's
// fingerprint computation) to mcp-go's wire shape. Properties are
// marshalled through a JSON round-trip rather than walked field by field,
// so nested constraints (enum, minimum, pattern, ...) survive untouched.
func toMCPSchema(schema *jsonschema.Schema) mcp.ToolInputSchema {
	if schema == nil {
		return mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
	}

	properties := make(map[string]interface{}, len(schema.Properties))
	for name, propSchema := range schema.Properties {
		properties[name] = schemaToMap(propSchema)
	}

	schemaType := schema.Type
	if schemaType == "" {
		schemaType = "object"
	}

	return mcp.ToolInputSchema{
		Type:       schemaType,
		Properties: properties,
		Required:   schema.Required,
	}
}

// schemaToMap reduces a nested *jsonschema.Schema to a generic map so it
// can be embedded verbatim inside mcp.ToolInputSchema.Properties.
func schemaToMap(schema *jsonschema.Schema) map[string]interface{} {
	b, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{}
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return map[string]interface{}{}
	}
	return generic
}
