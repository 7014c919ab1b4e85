package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "regions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "display_name": {"type": "string"},
          "color": {"type": "string"},
          "icon": {"type": "string"},
          "position": {"type": "integer"}
        }
      }
    },
    "concepts": {
      "type": "array",
      "items": {"$ref": "#/definitions/concept"}
    }
  },
  "definitions": {
    "concept": {
      "type": "object",
      "required": ["id", "region"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "region": {"type": "string", "minLength": 1},
        "order": {"type": "integer"},
        "classroom_id": {"type": "string"},
        "topics": {"type": "array", "items": {"$ref": "#/definitions/topic"}},
        "quiz": {"$ref": "#/definitions/quiz"}
      }
    },
    "topic": {
      "type": "object",
      "required": ["id"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "subtopics": {"type": "array", "items": {"$ref": "#/definitions/subtopic"}}
      }
    },
    "subtopic": {
      "type": "object",
      "required": ["id"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "content_id": {"type": "integer", "minimum": 0}
      }
    },
    "quiz": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string"},
        "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
        "questions": {"type": "array", "items": {"$ref": "#/definitions/question"}}
      }
    },
    "question": {
      "type": "object",
      "required": ["id", "options", "correct"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "prompt": {"type": "string"},
        "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
        "correct": {"type": "integer", "minimum": 0},
        "explanation": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(catalogSchema))
})

// ValidateDocument checks raw catalog YAML against the catalog JSON schema.
func ValidateDocument(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling catalog schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding catalog YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating catalog: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("catalog does not match schema: %s", strings.Join(msgs, "; "))
}
