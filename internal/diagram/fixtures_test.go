package diagram

import "github.com/rendis/codeflow/pkg/schema"

func linearGraph() schema.FlowchartGraph {
	return schema.FlowchartGraph{
		Title: schema.TitleCode,
		Nodes: []schema.FlowNode{
			{ID: "start", Kind: schema.NodeKindStart, Label: "Start"},
			{ID: "node_1", Kind: schema.NodeKindInput, Label: "Read input"},
			{ID: "node_2", Kind: schema.NodeKindProcess, Label: "total = a + b"},
			{ID: "node_3", Kind: schema.NodeKindOutput, Label: "print(total)"},
			{ID: "end", Kind: schema.NodeKindEnd, Label: "End"},
		},
		Edges: []schema.FlowEdge{
			{From: "start", To: "node_1"},
			{From: "node_1", To: "node_2"},
			{From: "node_2", To: "node_3"},
			{From: "node_3", To: "end"},
		},
	}
}

func branchGraph() schema.FlowchartGraph {
	return schema.FlowchartGraph{
		Title: "Branching",
		Nodes: []schema.FlowNode{
			{ID: "start", Kind: schema.NodeKindStart, Label: "Start"},
			{ID: "check", Kind: schema.NodeKindDecision, Label: `if x > "0"`},
			{ID: "yes", Kind: schema.NodeKindProcess, Label: "positive"},
			{ID: "no", Kind: schema.NodeKindProcess, Label: "negative"},
			{ID: "loop", Kind: schema.NodeKindLoop, Label: "for i in range(3)\n  body"},
			{ID: "end", Kind: schema.NodeKindEnd, Label: "End"},
		},
		Edges: []schema.FlowEdge{
			{From: "start", To: "check"},
			{From: "check", To: "yes", Label: "Yes"},
			{From: "check", To: "no", Label: "No"},
			{From: "yes", To: "loop"},
			{From: "no", To: "loop"},
			{From: "loop", To: "end"},
		},
	}
}

func errorGraph() schema.FlowchartGraph {
	return schema.FlowchartGraph{
		Title: schema.TitleError,
		Nodes: []schema.FlowNode{
			{ID: schema.ErrorNodeID, Kind: schema.NodeKindError, Label: "Syntax Error: invalid syntax"},
		},
	}
}
