package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/rendis/codeflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExprEngine(t *testing.T) {
	e := NewExprEngine()
	assert.Equal(t, "expr", e.Name())
}

func TestExpr_TopicPredicates(t *testing.T) {
	e := NewExprEngine()

	tests := []struct {
		name    string
		expr    string
		message string
		want    bool
	}{
		{"contains", `message contains "help"`, "please help", true},
		{"any hit", `any(["hello", "hey"], {message contains #})`, "hey there", true},
		{"any miss", `any(["hello", "hey"], {message contains #})`, "loops?", false},
		{"and", `message contains "how" and message contains "loop"`, "how do i loop", true},
		{"or", `message startsWith "why" or message endsWith "?"`, "what?", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tt.expr, map[string]any{"message": tt.message})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestExpr_Arithmetic(t *testing.T) {
	e := NewExprEngine()
	out, err := e.Evaluate(context.Background(), "2 + 3 * 4", nil)
	require.NoError(t, err)
	assert.Equal(t, 14, out)
}

func TestExpr_EmptyExpression(t *testing.T) {
	_, err := NewExprEngine().Evaluate(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestExpr_CompileError(t *testing.T) {
	_, err := NewExprEngine().Evaluate(context.Background(), "message contains", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestExpr_Caching(t *testing.T) {
	e := NewExprEngine()
	for _, m := range []string{"a", "b", "c"} {
		_, err := e.Evaluate(context.Background(), `message == "a"`, map[string]any{"message": m})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.cache.len())
}

func TestExpr_Concurrent(t *testing.T) {
	e := NewExprEngine()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), `message contains "x"`, map[string]any{"message": "xyz"})
			assert.NoError(t, err)
			assert.Equal(t, true, out)
		}()
	}
	wg.Wait()
}

func TestExpr_CompileThenEvaluateWithList(t *testing.T) {
	e := NewExprEngine("message", "keys")
	const q = `any(keys, {message contains #})`
	require.NoError(t, e.Compile(q))

	out, err := e.Evaluate(context.Background(), q, map[string]any{
		"message": "what is a loop",
		"keys":    []string{"what is a loop", "what is python"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out)
	assert.Equal(t, 1, e.cache.len())
}

func TestExpr_DeclaredVariableShadowsBuiltin(t *testing.T) {
	e := NewExprEngine("values")
	out, err := e.Evaluate(context.Background(), `len(values) == 2`, map[string]any{
		"values": []any{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestNew_ExprDeclaresVariables(t *testing.T) {
	eng, ok, err := New("expr", "keys")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, eng.Compile(`"a" in keys`))
}
