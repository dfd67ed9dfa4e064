package ml

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const envelopeSchemaURL = "schema://langclass/model.json"

// envelopeSchema describes the on-disk model format. It checks shape and
// value ranges only; arena consistency is left to DecisionTree.validate.
const envelopeSchema = `{
  "type": "object",
  "required": ["kind", "model"],
  "properties": {
    "kind": {"type": "string"},
    "model": {"type": "object"}
  },
  "allOf": [
    {
      "if": {"properties": {"kind": {"const": "tree"}}},
      "then": {"properties": {"model": {"$ref": "#/$defs/tree"}}}
    },
    {
      "if": {"properties": {"kind": {"const": "adaboost"}}},
      "then": {"properties": {"model": {"$ref": "#/$defs/adaboost"}}}
    }
  ],
  "$defs": {
    "label": {"enum": ["en", "nl"]},
    "feature": {"type": "integer", "minimum": 0, "maximum": 9},
    "index": {"type": "integer", "minimum": -1},
    "count": {"type": "integer", "minimum": 0},
    "stats": {
      "type": "object",
      "properties": {
        "true_a": {"$ref": "#/$defs/count"},
        "true_b": {"$ref": "#/$defs/count"},
        "false_a": {"$ref": "#/$defs/count"},
        "false_b": {"$ref": "#/$defs/count"},
        "remainder": {"type": "number", "minimum": 0}
      }
    },
    "node": {
      "type": "object",
      "required": ["next_feature", "true_branch", "false_branch", "stop", "decision"],
      "properties": {
        "size": {"$ref": "#/$defs/count"},
        "features": {"type": ["array", "null"], "items": {"$ref": "#/$defs/stats"}},
        "next_feature": {"type": "integer", "minimum": -1, "maximum": 9},
        "true_branch": {"$ref": "#/$defs/index"},
        "false_branch": {"$ref": "#/$defs/index"},
        "parent": {"$ref": "#/$defs/index"},
        "stop": {"type": "boolean"},
        "decision": {"$ref": "#/$defs/label"},
        "hypothesis": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["feature", "value"],
            "properties": {
              "feature": {"$ref": "#/$defs/feature"},
              "value": {"type": "boolean"}
            }
          }
        }
      }
    },
    "tree": {
      "type": "object",
      "required": ["nodes"],
      "properties": {
        "nodes": {"type": ["array", "null"], "items": {"$ref": "#/$defs/node"}},
        "leaves": {"type": ["array", "null"], "items": {"$ref": "#/$defs/count"}},
        "max_depth": {"type": "integer"}
      }
    },
    "adaboost": {
      "type": "object",
      "required": ["positive", "hypotheses"],
      "properties": {
        "positive": {"$ref": "#/$defs/label"},
        "hypotheses": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["feature", "positive"],
            "properties": {
              "feature": {"$ref": "#/$defs/feature"},
              "positive": {"$ref": "#/$defs/label"}
            }
          }
        },
        "weights": {"type": ["array", "null"], "items": {"type": "number"}}
      }
    }
  }
}`

var compiledEnvelope = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(envelopeSchema), &doc); err != nil {
		return nil, fmt.Errorf("parse model schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add model schema: %w", err)
	}
	return c.Compile(envelopeSchemaURL)
})

// validateEnvelope checks a serialized model against the envelope schema.
func validateEnvelope(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	schema, err := compiledEnvelope()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return nil
}
