package diagram

import (
	"fmt"

	"github.com/rendis/codeflow/pkg/schema"
)

// Build converts a flowchart graph into a DiagramModel. Edges must refer to
// existing nodes.
func Build(g schema.FlowchartGraph) (*DiagramModel, error) {
	m := &DiagramModel{Title: g.Title}
	index := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if index[n.ID] {
			return nil, fmt.Errorf("diagram: duplicate node id %q", n.ID)
		}
		index[n.ID] = true
		m.Nodes = append(m.Nodes, &Node{ID: n.ID, Label: n.Label, Kind: n.Kind})
	}
	for _, e := range g.Edges {
		if !index[e.From] || !index[e.To] {
			return nil, fmt.Errorf("diagram: edge %s -> %s refers to an unknown node", e.From, e.To)
		}
		m.Edges = append(m.Edges, Edge{From: e.From, To: e.To, Label: e.Label})
	}
	m.Levels = buildLevels(m)
	return m, nil
}

// buildLevels assigns each node the length of the longest path reaching it
// from a node without incoming edges. Nodes on a cycle that no root reaches
// are appended last, in declaration order.
func buildLevels(m *DiagramModel) [][]string {
	indeg := make(map[string]int, len(m.Nodes))
	out := make(map[string][]string, len(m.Nodes))
	for _, e := range m.Edges {
		indeg[e.To]++
		out[e.From] = append(out[e.From], e.To)
	}

	depth := make(map[string]int, len(m.Nodes))
	var queue []string
	for _, n := range m.Nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	remaining := make(map[string]int, len(indeg))
	for k, v := range indeg {
		remaining[k] = v
	}
	placed := make(map[string]bool, len(m.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		placed[id] = true
		for _, next := range out[id] {
			if d := depth[id] + 1; d > depth[next] {
				depth[next] = d
			}
			remaining[next]--
			if remaining[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	var levels [][]string
	for _, n := range m.Nodes {
		if !placed[n.ID] {
			continue
		}
		d := depth[n.ID]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], n.ID)
	}
	for _, n := range m.Nodes {
		if !placed[n.ID] {
			levels = append(levels, []string{n.ID})
		}
	}
	return levels
}
