package config

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON Schema every breakpoint file must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "simple-debug breakpoint file",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["file"],
    "properties": {
      "file": { "type": "string" },
      "breakpoints": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "function": { "type": "string", "minLength": 1 },
            "line": { "type": "integer", "minimum": 1 }
          },
          "anyOf": [
            { "required": ["function"] },
            { "required": ["line"] }
          ]
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
	})
	return schema, schemaErr
}

// validate returns the schema violations of data. A non-nil error means data
// could not be checked at all, typically because it is not JSON.
func validate(data []byte) ([]string, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return problems, nil
}
