package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rendis/codeflow/pkg/schema"
)

// CELEngine evaluates Common Expression Language predicates over string
// variables. Compiled programs are cached and safe for concurrent use.
type CELEngine struct {
	env   *cel.Env
	vars  []string
	cache *programCache[cel.Program]
}

// NewCELEngine creates a CEL engine. Each named variable is declared as a string.
func NewCELEngine(vars ...string) (*CELEngine, error) {
	opts := make([]cel.EnvOption, 0, len(vars))
	for _, v := range vars {
		opts = append(opts, cel.Variable(v, cel.StringType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{
		env:   env,
		vars:  vars,
		cache: newProgramCache[cel.Program](),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Compile checks expression against the declared variables.
func (e *CELEngine) Compile(expression string) error {
	if expression == "" {
		return schema.NewError(schema.ErrCodeValidation, "empty CEL expression")
	}
	_, err := e.cache.get(expression, func() (cel.Program, error) { return e.compile(expression) })
	return err
}

// Evaluate compiles (or retrieves from cache) a CEL expression and evaluates it.
// Declared variables missing from data evaluate as the empty string.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty CEL expression")
	}

	prg, err := e.cache.get(expression, func() (cel.Program, error) { return e.compile(expression) })
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, e.activation(data))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeRuntime,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	return out.Value(), nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}

	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return prg, nil
}

func (e *CELEngine) activation(data map[string]any) map[string]any {
	activation := make(map[string]any, len(e.vars))
	for _, key := range e.vars {
		if v, ok := data[key]; ok && v != nil {
			activation[key] = v
		} else {
			activation[key] = ""
		}
	}
	return activation
}

var _ Engine = (*CELEngine)(nil)
