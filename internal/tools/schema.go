package tools

import (
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema wraps a compiled JSON schema. A nil inner schema accepts
// everything, used for contract entries that declare no schema.
type compiledSchema struct {
	schema *jsonschema.Schema
}

// compileSchema compiles a schema document parsed from the contract YAML. The
// document is round-tripped through JSON so YAML integer literals validate
// like JSON numbers.
func compileSchema(doc map[string]any) (*compiledSchema, error) {
	if len(doc) == 0 {
		return &compiledSchema{}, nil
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, fmt.Errorf("normalizing schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mem://schema.json", normalized); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	schema, err := compiler.Compile("mem://schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &compiledSchema{schema: schema}, nil
}

// validate checks value against the schema. The value is normalized through
// JSON first so Go ints and structs validate like their wire form.
func (c *compiledSchema) validate(value any) error {
	if c == nil || c.schema == nil {
		return nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return fmt.Errorf("normalizing value: %w", err)
	}
	return c.schema.Validate(normalized)
}
