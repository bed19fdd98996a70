// Package schema translates tool-server-declared JSON Schema input shapes
// into the uniform models.ToolDefinition form the agent core hands to chat
// models. It never hand-authors per-vendor schemas; every tool definition
// the core ever sees originates from a tool-server's inputSchema.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/volition-run/volition/pkg/models"
)

// RawInputSchema is a tool-server's declared parameter schema, as returned
// by tools/list ({name, description, inputSchema}).
type RawInputSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// rawObjectSchema mirrors the subset of JSON Schema the core accepts: an
// object with typed, described, optionally-enumerated properties.
type rawObjectSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]rawPropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

type rawPropertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum"`
	// Items and nested Properties are accepted but intentionally discarded:
	// nested objects and arrays-of-objects collapse to the generic
	// object/array type with only their top-level description preserved.
}

// ToToolDefinition converts a tool-server's declared schema into the
// uniform internal form. It validates the raw schema is well-formed JSON
// Schema (via jsonschema.CompileString) before applying the mapping rules,
// so malformed schemas are rejected the same way a vendor API would reject
// them, rather than silently producing an empty parameter list.
func ToToolDefinition(raw RawInputSchema) (models.ToolDefinition, error) {
	if len(raw.InputSchema) == 0 {
		raw.InputSchema = json.RawMessage(`{"type":"object"}`)
	}

	if _, err := jsonschema.CompileString(raw.Name+".schema.json", string(raw.InputSchema)); err != nil {
		return models.ToolDefinition{}, fmt.Errorf("tool %q: invalid input schema: %w", raw.Name, err)
	}

	var obj rawObjectSchema
	if err := json.Unmarshal(raw.InputSchema, &obj); err != nil {
		return models.ToolDefinition{}, fmt.Errorf("tool %q: decode input schema: %w", raw.Name, err)
	}
	if obj.Type != "" && obj.Type != "object" {
		return models.ToolDefinition{}, fmt.Errorf("tool %q: top-level schema type must be \"object\", got %q", raw.Name, obj.Type)
	}

	properties := make(map[string]models.ParameterProperty, len(obj.Properties))
	names := make([]string, 0, len(obj.Properties))
	for name := range obj.Properties {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic iteration for reproducible error messages

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return models.ToolDefinition{}, fmt.Errorf("tool %q: duplicate property %q", raw.Name, name)
		}
		seen[name] = true

		prop := obj.Properties[name]
		ptype, err := mapParameterType(prop.Type)
		if err != nil {
			return models.ToolDefinition{}, fmt.Errorf("tool %q: property %q: %w", raw.Name, name, err)
		}
		properties[name] = models.ParameterProperty{
			Type:        ptype,
			Description: prop.Description,
			Enum:        prop.Enum,
		}
	}

	return models.ToolDefinition{
		Name:        raw.Name,
		Description: raw.Description,
		Parameters: models.ParameterSchema{
			Type:       models.ParamObject,
			Properties: properties,
			Required:   append([]string(nil), obj.Required...),
		},
	}, nil
}

// mapParameterType maps a JSON-Schema type token to the internal parameter
// type enum. Nested objects and arrays collapse to the generic object/array
// type, by design (§4.3): the model sees the JSON shape but not the nested
// schema.
func mapParameterType(jsonType string) (models.ParameterType, error) {
	switch jsonType {
	case "string":
		return models.ParamString, nil
	case "integer":
		return models.ParamInteger, nil
	case "number":
		return models.ParamNumber, nil
	case "boolean":
		return models.ParamBoolean, nil
	case "array":
		return models.ParamArray, nil
	case "object":
		return models.ParamObject, nil
	case "":
		return models.ParamString, nil // absent type token defaults to string, matching loose tool-server schemas
	default:
		return "", fmt.Errorf("unsupported JSON Schema type %q", jsonType)
	}
}
