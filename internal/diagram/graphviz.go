package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/codeflow/pkg/schema"
)

// Graphviz output formats.
const (
	FormatDOT graphviz.Format = "dot"
	FormatSVG graphviz.Format = "svg"
	FormatPNG graphviz.Format = "png"
)

// RenderGraphviz lays out a DiagramModel with dot and renders it in format.
func RenderGraphviz(ctx context.Context, model *DiagramModel, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node.Kind)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			return nil, fmt.Errorf("diagram: create edge %s -> %s: %w", edge.From, edge.To, eErr)
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets shape and fill by node kind.
func applyNodeStyle(gvNode *cgraph.Node, kind schema.NodeKind) {
	switch kind {
	case schema.NodeKindStart, schema.NodeKindEnd:
		gvNode.SetShape(cgraph.EllipseShape)
		fill(gvNode, "#2d6a2d", "white")
	case schema.NodeKindDecision:
		gvNode.SetShape(cgraph.DiamondShape)
		fill(gvNode, "#b7791a", "white")
	case schema.NodeKindLoop:
		gvNode.SetShape(cgraph.HexagonShape)
		fill(gvNode, "#b7791a", "white")
	case schema.NodeKindInput, schema.NodeKindOutput:
		gvNode.SetShape(cgraph.Shape("parallelogram"))
		fill(gvNode, "#1a5276", "white")
	case schema.NodeKindError:
		gvNode.SetShape(cgraph.BoxShape)
		fill(gvNode, "#8b1a1a", "white")
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}
}

func fill(gvNode *cgraph.Node, color, font string) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	gvNode.SetFillColor(color)
	gvNode.SetFontColor(font)
}
