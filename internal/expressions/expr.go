package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rendis/codeflow/pkg/schema"
)

// ExprEngine evaluates expr-lang expressions. The data map is the environment,
// so every key is a top-level variable; unknown names evaluate to nil.
// Declared variables shadow expr builtins of the same name (keys, len, ...).
type ExprEngine struct {
	cache *programCache[*vm.Program]
	env   map[string]any
}

// NewExprEngine creates a new Expr expression engine declaring vars as
// untyped variables.
func NewExprEngine(vars ...string) *ExprEngine {
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v] = nil
	}
	return &ExprEngine{cache: newProgramCache[*vm.Program](), env: env}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Compile checks expression without binding any variable types.
func (e *ExprEngine) Compile(expression string) error {
	if expression == "" {
		return schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}
	_, err := e.program(expression)
	return err
}

// Evaluate compiles (or retrieves from cache) an Expr expression and runs it.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}

	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeRuntime,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	return out, nil
}

// program compiles against the declared, untyped environment so variable
// types are resolved at run time and one cached program serves every caller.
func (e *ExprEngine) program(expression string) (*vm.Program, error) {
	return e.cache.get(expression, func() (*vm.Program, error) {
		p, err := expr.Compile(expression, expr.Env(e.env), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"expr compile error in %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		return p, nil
	})
}

var _ Engine = (*ExprEngine)(nil)
