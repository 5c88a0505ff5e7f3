package flowchart

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rendis/codeflow/pkg/schema"
)

// singlePath reports whether g has one start first, one end last, and edges
// chaining every node exactly once in order.
func singlePath(g schema.FlowchartGraph) bool {
	n := len(g.Nodes)
	if n < 2 || len(g.Edges) != n-1 {
		return false
	}
	if g.Nodes[0].Kind != schema.NodeKindStart || g.Nodes[n-1].Kind != schema.NodeKindEnd {
		return false
	}
	for i, e := range g.Edges {
		if e.From != g.Nodes[i].ID || e.To != g.Nodes[i+1].ID || e.Label != "" {
			return false
		}
	}
	for _, node := range g.Nodes[1 : n-1] {
		if node.Kind == schema.NodeKindStart || node.Kind == schema.NodeKindEnd {
			return false
		}
	}
	return true
}

// snippets are top-level statements; the count is how many nodes each adds.
var snippets = []struct {
	src   string
	nodes int
}{
	{"x = 1\n", 0},
	{"if x:\n    pass\n", 1},
	{"for i in range(3):\n    pass\n", 1},
	{"while False:\n    pass\n", 1},
	{"def f():\n    if True:\n        pass\n", 2},
	{"print('hi')\n", 0},
}

func TestProperty_ProblemGraphsAreSinglePaths(t *testing.T) {
	s := New(Config{})
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("problem graph is a single start-to-end path", prop.ForAll(
		func(text string) bool {
			return singlePath(s.FromProblem(context.Background(), text))
		},
		gen.AnyString(),
	))

	properties.Property("problem synthesis is idempotent", prop.ForAll(
		func(text string) bool {
			a := s.FromProblem(context.Background(), text)
			b := s.FromProblem(context.Background(), text)
			return a.Title == b.Title && len(a.Nodes) == len(b.Nodes) &&
				strings.Join(labels(a), "|") == strings.Join(labels(b), "|")
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_CodeGraphsAreSinglePaths(t *testing.T) {
	s := New(Config{})
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("valid source yields start, one node per construct, end", prop.ForAll(
		func(picks []int) bool {
			var src strings.Builder
			want := 2
			for _, p := range picks {
				src.WriteString(snippets[p].src)
				want += snippets[p].nodes
			}
			g := s.FromCode(context.Background(), src.String())
			return singlePath(g) && len(g.Nodes) == want
		},
		gen.SliceOf(gen.IntRange(0, len(snippets)-1)),
	))

	properties.Property("invalid source yields only the error node", prop.ForAll(
		func(name string) bool {
			g := s.FromCode(context.Background(), "def "+name+"(:\n")
			return g.IsErrorGraph() && len(g.Edges) == 0
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
