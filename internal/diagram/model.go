// Package diagram renders flowchart graphs as Mermaid, boxed text, DOT, SVG
// and PNG.
package diagram

import "github.com/rendis/codeflow/pkg/schema"

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string // node ids grouped by depth from the roots
}

// Node is one box of the diagram.
type Node struct {
	ID    string
	Label string
	Kind  schema.NodeKind
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// node looks up a node by id.
func (m *DiagramModel) node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
