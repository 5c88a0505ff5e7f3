package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/pkg/schema"
)

func TestBuildLinearLevels(t *testing.T) {
	model, err := Build(linearGraph())
	require.NoError(t, err)

	assert.Equal(t, schema.TitleCode, model.Title)
	assert.Len(t, model.Nodes, 5)
	assert.Equal(t, [][]string{{"start"}, {"node_1"}, {"node_2"}, {"node_3"}, {"end"}}, model.Levels)
}

func TestBuildBranchLevels(t *testing.T) {
	model, err := Build(branchGraph())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"start"}, {"check"}, {"yes", "no"}, {"loop"}, {"end"}}, model.Levels)
}

func TestBuildLongestPathWins(t *testing.T) {
	g := schema.FlowchartGraph{
		Nodes: []schema.FlowNode{
			{ID: "a", Kind: schema.NodeKindStart},
			{ID: "b", Kind: schema.NodeKindProcess},
			{ID: "c", Kind: schema.NodeKindEnd},
		},
		Edges: []schema.FlowEdge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"}},
	}
	model, err := Build(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, model.Levels)
}

func TestBuildCycleNodesPlacedLast(t *testing.T) {
	g := schema.FlowchartGraph{
		Nodes: []schema.FlowNode{
			{ID: "a", Kind: schema.NodeKindStart},
			{ID: "x", Kind: schema.NodeKindProcess},
			{ID: "y", Kind: schema.NodeKindProcess},
		},
		Edges: []schema.FlowEdge{{From: "x", To: "y"}, {From: "y", To: "x"}},
	}
	model, err := Build(g)
	require.NoError(t, err)

	var placed []string
	for _, level := range model.Levels {
		placed = append(placed, level...)
	}
	assert.ElementsMatch(t, []string{"a", "x", "y"}, placed)
	assert.Equal(t, []string{"a"}, model.Levels[0])
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	g := schema.FlowchartGraph{Nodes: []schema.FlowNode{{ID: "a"}, {ID: "a"}}}
	_, err := Build(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestBuildRejectsDanglingEdge(t *testing.T) {
	g := schema.FlowchartGraph{
		Nodes: []schema.FlowNode{{ID: "a"}},
		Edges: []schema.FlowEdge{{From: "a", To: "missing"}},
	}
	_, err := Build(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node")
}

func TestBuildErrorGraph(t *testing.T) {
	model, err := Build(errorGraph())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{schema.ErrorNodeID}}, model.Levels)
}
