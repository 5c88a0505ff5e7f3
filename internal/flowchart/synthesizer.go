// Package flowchart turns problem statements and Starlark source into
// single-path flowchart graphs.
package flowchart

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/rules"
	"github.com/rendis/codeflow/internal/source"
	"github.com/rendis/codeflow/pkg/schema"
	"go.starlark.net/syntax"
)

// Label fallbacks used when an expression cannot be rendered.
const (
	fallbackCondition = "condition"
	fallbackTarget    = "item"
	fallbackIterable  = "iterable"
)

// Synthesizer builds flowcharts. It holds no per-call state and is safe for
// concurrent use.
type Synthesizer struct {
	steps  *rules.Table
	kinds  *rules.Table
	logger *slog.Logger
}

// Config holds the dependencies of a Synthesizer.
type Config struct {
	Rules  *rules.Set
	Logger *slog.Logger
}

// New creates a Synthesizer. A nil rule set uses the built-in tables.
func New(cfg Config) *Synthesizer {
	set := cfg.Rules
	if set == nil {
		set = rules.MustLoadBuiltin()
	}
	logger := logging.OrDefault(cfg.Logger)
	return &Synthesizer{
		steps:  set.Get(rules.ProblemSteps),
		kinds:  set.Get(rules.StepKinds),
		logger: logger,
	}
}

// FromProblem builds the flowchart for a free-text problem description:
// start, one node per matched step phrase, end.
func (s *Synthesizer) FromProblem(ctx context.Context, problem string) schema.FlowchartGraph {
	b := newPathBuilder(schema.TitleProblem)
	b.start()
	for _, phrase := range s.stepPhrases(ctx, problem) {
		b.add(s.classify(ctx, phrase), phrase)
	}
	return b.finish()
}

// FromCode builds the flowchart for Starlark source. Unparseable source
// yields the single-node error graph.
func (s *Synthesizer) FromCode(ctx context.Context, src string) schema.FlowchartGraph {
	f, err := source.Parse(src)
	if err != nil {
		return errorGraph(err)
	}

	b := newPathBuilder(schema.TitleCode)
	b.start()
	source.Walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DefStmt:
			b.add(schema.NodeKindProcess, "Define "+n.Name.Name)
		case *syntax.IfStmt:
			b.add(schema.NodeKindDecision, "If "+source.RenderOr(n.Cond, fallbackCondition))
		case *syntax.ForStmt:
			b.add(schema.NodeKindLoop, "For "+source.RenderOr(n.Vars, fallbackTarget)+
				" in "+source.RenderOr(n.X, fallbackIterable))
		case *syntax.WhileStmt:
			b.add(schema.NodeKindLoop, "While "+source.RenderOr(n.Cond, fallbackCondition))
		}
		return true
	})
	return b.finish()
}

func (s *Synthesizer) stepPhrases(ctx context.Context, problem string) []string {
	data := map[string]any{"text": strings.ToLower(problem)}
	phrases, err := s.steps.Match(ctx, data)
	if err != nil {
		s.logger.Warn("problem step rules failed, using fallback", "error", err)
		return s.steps.Fallback
	}
	return phrases
}

func (s *Synthesizer) classify(ctx context.Context, phrase string) schema.NodeKind {
	kind, ok, err := s.kinds.First(ctx, map[string]any{"text": strings.ToLower(phrase)})
	if err != nil {
		s.logger.Warn("step kind rules failed", "phrase", phrase, "error", err)
		return schema.NodeKindProcess
	}
	if !ok || !schema.NodeKind(kind).Valid() {
		return schema.NodeKindProcess
	}
	return schema.NodeKind(kind)
}
