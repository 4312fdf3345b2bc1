package rulepack

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// packSchema pins down the structural shape of a rule-pack document
// before it reaches the engine. It is deliberately loose about rule
// content (severity is an open vocabulary and test parameters are
// op-specific), but a document whose rules lack an id or a test.op is a
// configuration error worth failing loudly on, the same way a missing
// pack is.
const packSchema = `{
  "type": "object",
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "test"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string"},
          "severity": {"type": "string"},
          "source": {
            "type": "object",
            "properties": {
              "module": {"type": "string"},
              "path": {"type": "string"}
            }
          },
          "test": {
            "type": "object",
            "required": ["op"],
            "properties": {
              "op": {"type": "string", "minLength": 1}
            }
          },
          "pass_message": {"type": "string"},
          "fail_message": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "remediation": {"type": "string"},
          "description": {"type": "string"},
          "level": {"type": "integer"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func validateDocument(data []byte) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile([]byte(packSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("compile pack schema: %w", schemaErr)
	}
	result := compiledSchema.ValidateJSON(data)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %v", result.Errors)
	}
	return nil
}
