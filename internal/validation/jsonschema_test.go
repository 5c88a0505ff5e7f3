package validation

import (
	"testing"

	"github.com/rendis/codeflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	v, err := NewSchemaValidator()
	require.NoError(t, err)
	return v
}

func decodeYAML(t *testing.T, src string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc
}

func TestValidateRuleTable_Valid(t *testing.T) {
	doc := decodeYAML(t, `
name: topics
engine: expr
variables: [message]
rules:
  - name: greeting
    when: 'message contains "hello"'
    then: greeting
fallback: [default]
`)
	assert.NoError(t, newValidator(t).ValidateRuleTable(doc))
}

func TestValidateRuleTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing engine", "rules:\n  - {name: a, when: 'true', then: b}\n"},
		{"unknown engine", "engine: lua\nrules:\n  - {name: a, when: 'true', then: b}\n"},
		{"empty rules", "engine: cel\nrules: []\n"},
		{"rule without then", "engine: cel\nrules:\n  - {name: a, when: 'true'}\n"},
		{"unknown key", "engine: cel\nextra: 1\nrules:\n  - {name: a, when: 'true', then: b}\n"},
		{"bad variable", "engine: cel\nvariables: ['1x']\nrules:\n  - {name: a, when: 'true', then: b}\n"},
	}
	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRuleTable(decodeYAML(t, tt.src))
			require.Error(t, err)
			assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
		})
	}
}

func TestValidateRuleTable_Nil(t *testing.T) {
	err := newValidator(t).ValidateRuleTable(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestValidateFlowchart(t *testing.T) {
	v := newValidator(t)

	good := schema.FlowchartGraph{
		Title: "t",
		Nodes: []schema.FlowNode{
			{ID: "node_1", Kind: schema.NodeKindStart, Label: "Start", X: 100, Y: 50},
			{ID: "node_2", Kind: schema.NodeKindEnd, Label: "End", X: 100, Y: 150},
		},
		Edges: []schema.FlowEdge{{From: "node_1", To: "node_2"}},
	}
	assert.NoError(t, v.ValidateFlowchart(good))

	badKind := good
	badKind.Nodes = []schema.FlowNode{{ID: "n", Kind: "subroutine", Label: "x"}}
	badKind.Edges = []schema.FlowEdge{}
	assert.Error(t, v.ValidateFlowchart(badKind))

	dangling := good
	dangling.Edges = []schema.FlowEdge{{From: "node_1", To: "node_9"}}
	err := v.ValidateFlowchart(dangling)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node_9")

	dup := good
	dup.Nodes = []schema.FlowNode{good.Nodes[0], good.Nodes[0]}
	dup.Edges = []schema.FlowEdge{}
	assert.ErrorContains(t, v.ValidateFlowchart(dup), "duplicate")
}

func TestValidateFlowchart_MissingEdges(t *testing.T) {
	doc := map[string]any{"nodes": []any{}}
	err := newValidator(t).ValidateFlowchart(doc)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}
