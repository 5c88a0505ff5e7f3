package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/codeflow/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ruleTableSchemaURL = "https://codeflow.dev/schemas/rule-table.json"
	flowchartSchemaURL = "https://codeflow.dev/schemas/flowchart.json"
)

// ruleTableSchemaJSON describes a YAML rule table after decoding.
const ruleTableSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://codeflow.dev/schemas/rule-table.json",
  "type": "object",
  "required": ["engine", "rules"],
  "properties": {
    "name": { "type": "string" },
    "description": { "type": "string" },
    "engine": { "type": "string", "enum": ["cel", "expr"] },
    "variables": {
      "type": "array",
      "items": { "type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$" }
    },
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/rule" }
    },
    "fallback": {
      "type": "array",
      "items": { "type": "string", "minLength": 1 }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "rule": {
      "type": "object",
      "required": ["name", "when", "then"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "when": { "type": "string", "minLength": 1 },
        "then": { "type": "string", "minLength": 1 },
        "description": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// flowchartSchemaJSON describes a FlowchartGraph submitted for rendering.
const flowchartSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://codeflow.dev/schemas/flowchart.json",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "title": { "type": "string" },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "label"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "type": {
            "type": "string",
            "enum": ["start", "end", "process", "input", "output", "decision", "loop", "error"]
          },
          "label": { "type": "string" },
          "x": { "type": "integer" },
          "y": { "type": "integer" }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "properties": {
          "from": { "type": "string", "minLength": 1 },
          "to": { "type": "string", "minLength": 1 },
          "label": { "type": "string" }
        }
      }
    }
  }
}`

// SchemaValidator checks rule tables and submitted flowcharts against
// JSON Schema Draft 2020-12. It is safe for concurrent use.
type SchemaValidator struct {
	ruleTable *jsonschema.Schema
	flowchart *jsonschema.Schema
}

// NewSchemaValidator compiles the embedded schemas.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, src := range map[string]string{
		ruleTableSchemaURL: ruleTableSchemaJSON,
		flowchartSchemaURL: flowchartSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	rt, err := c.Compile(ruleTableSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile rule table schema: %w", err)
	}
	fc, err := c.Compile(flowchartSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile flowchart schema: %w", err)
	}

	return &SchemaValidator{ruleTable: rt, flowchart: fc}, nil
}

// ValidateRuleTable validates a decoded rule table document.
func (v *SchemaValidator) ValidateRuleTable(doc any) error {
	return validateDoc(v.ruleTable, "rule table", doc)
}

// ValidateFlowchart validates a flowchart document and checks that every
// edge refers to a declared node.
func (v *SchemaValidator) ValidateFlowchart(doc any) error {
	if err := validateDoc(v.flowchart, "flowchart", doc); err != nil {
		return err
	}

	var g schema.FlowchartGraph
	b, err := json.Marshal(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize flowchart").WithCause(err)
	}
	if err := json.Unmarshal(b, &g); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to decode flowchart").WithCause(err)
	}

	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := ids[n.ID]; dup {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		for _, end := range []string{e.From, e.To} {
			if _, ok := ids[end]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation, "edges[%d] refers to unknown node %q", i, end)
			}
		}
	}
	return nil
}

func validateDoc(s *jsonschema.Schema, what string, doc any) error {
	if doc == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s is nil", what)
	}

	value, err := toJSONValue(doc)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "failed to serialize %s", what).WithCause(err)
	}

	if err := s.Validate(value); err != nil {
		return toCodeflowError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toCodeflowError converts a jsonschema.ValidationError into a VALIDATION_ERROR
// listing every leaf violation.
func toCodeflowError(err error) *schema.CodeflowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
