package engine

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// Schema is a named JSON schema for structured chat output.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// SchemaFor reflects T into a strict object schema: no additional
// properties and every property required.
func SchemaFor[T any](name, description string) (*Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshaling schema %s: %w", name, err)
	}
	var def map[string]any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("decoding schema %s: %w", name, err)
	}
	delete(def, "$schema")
	delete(def, "$id")
	strict(def)
	return &Schema{Name: name, Description: description, Definition: def}, nil
}

// MustSchemaFor is SchemaFor for package-level schemas.
func MustSchemaFor[T any](name, description string) *Schema {
	s, err := SchemaFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

func strict(node map[string]any) {
	props, _ := node["properties"].(map[string]any)
	if node["type"] == "object" {
		node["additionalProperties"] = false
		if len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			slices.Sort(required)
			node["required"] = required
		}
	}
	for _, p := range props {
		if child, ok := p.(map[string]any); ok {
			strict(child)
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		strict(items)
	}
}
