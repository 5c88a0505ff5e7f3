package flowchart

import (
	"errors"
	"fmt"

	"github.com/rendis/codeflow/internal/source"
	"github.com/rendis/codeflow/pkg/schema"
)

// pathBuilder appends nodes to a single vertical path. The id counter is
// local to one builder, so every synthesis starts again at node_1.
type pathBuilder struct {
	graph  schema.FlowchartGraph
	nextID int
	nextY  int
	prev   string
}

func newPathBuilder(title string) *pathBuilder {
	return &pathBuilder{
		graph: schema.FlowchartGraph{
			Nodes: []schema.FlowNode{},
			Edges: []schema.FlowEdge{},
			Title: title,
		},
		nextY: schema.StartY,
	}
}

// add appends a node and, unless it is the first, an edge from the previous node.
func (b *pathBuilder) add(kind schema.NodeKind, label string) string {
	b.nextID++
	id := fmt.Sprintf("node_%d", b.nextID)

	b.graph.Nodes = append(b.graph.Nodes, schema.FlowNode{
		ID:    id,
		Kind:  kind,
		Label: label,
		X:     schema.ColumnX,
		Y:     b.nextY,
	})
	if b.prev != "" {
		b.graph.Edges = append(b.graph.Edges, schema.FlowEdge{From: b.prev, To: id})
	}

	if b.nextY == schema.StartY {
		b.nextY = schema.FirstStepY
	} else {
		b.nextY += schema.RowSpacing
	}
	b.prev = id
	return id
}

func (b *pathBuilder) start() { b.add(schema.NodeKindStart, "Start") }

func (b *pathBuilder) finish() schema.FlowchartGraph {
	b.add(schema.NodeKindEnd, "End")
	return b.graph
}

// errorGraph is the single-node graph returned for unparseable source. The
// label carries the parser line when known.
func errorGraph(err error) schema.FlowchartGraph {
	msg := err.Error()
	var se *source.SyntaxError
	if errors.As(err, &se) && se.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", se.Msg, se.Line)
	}
	return schema.FlowchartGraph{
		Nodes: []schema.FlowNode{{
			ID:    schema.ErrorNodeID,
			Kind:  schema.NodeKindError,
			Label: "Syntax Error: " + msg,
			X:     schema.ColumnX,
			Y:     schema.ErrorY,
		}},
		Edges: []schema.FlowEdge{},
		Title: schema.TitleError,
	}
}
