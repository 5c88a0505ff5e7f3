package schema

// NodeKind is the closed set of flowchart node kinds.
type NodeKind string

const (
	NodeKindStart    NodeKind = "start"
	NodeKindEnd      NodeKind = "end"
	NodeKindProcess  NodeKind = "process"
	NodeKindInput    NodeKind = "input"
	NodeKindOutput   NodeKind = "output"
	NodeKindDecision NodeKind = "decision"
	NodeKindLoop     NodeKind = "loop"
	NodeKindError    NodeKind = "error"
)

// ValidNodeKinds lists every NodeKind in declaration order.
var ValidNodeKinds = []NodeKind{
	NodeKindStart, NodeKindEnd, NodeKindProcess, NodeKindInput,
	NodeKindOutput, NodeKindDecision, NodeKindLoop, NodeKindError,
}

// Valid reports whether k is one of the declared kinds.
func (k NodeKind) Valid() bool {
	for _, v := range ValidNodeKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Layout constants for synthesized graphs.
const (
	ColumnX    = 100
	StartY     = 50
	FirstStepY = 150
	RowSpacing = 100
	ErrorY     = 100
)

// Well-known titles and ids.
const (
	TitleProblem = "Problem Solution Flowchart"
	TitleCode    = "Code Flow Diagram"
	TitleError   = "Error in Code"
	ErrorNodeID  = "error_node"
)

// FlowNode is a single box in a flowchart.
type FlowNode struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"type"`
	Label string   `json:"label"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
}

// FlowEdge is a directed connection between two nodes.
type FlowEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// FlowchartGraph is the value returned by both synthesizers.
type FlowchartGraph struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
	Title string     `json:"title"`
}

// Node returns the node with the given id, or nil.
func (g *FlowchartGraph) Node(id string) *FlowNode {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Kinds returns node kinds in node order.
func (g *FlowchartGraph) Kinds() []NodeKind {
	out := make([]NodeKind, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Kind
	}
	return out
}

// IsErrorGraph reports whether g is the single-node syntax error graph.
func (g *FlowchartGraph) IsErrorGraph() bool {
	return len(g.Nodes) == 1 && g.Nodes[0].Kind == NodeKindError
}
