package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeflowError_Error(t *testing.T) {
	err := NewError(ErrCodeParse, "got ')', want expression")
	assert.Equal(t, "[PARSE_ERROR] got ')', want expression", err.Error())

	err = NewErrorf(ErrCodeParse, "unexpected %s", "EOF").WithLine(3)
	assert.Equal(t, "[PARSE_ERROR] line 3: unexpected EOF", err.Error())
}

func TestCodeflowError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrCodeStore, "append failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)

	var ce *CodeflowError
	wrapped := fmt.Errorf("history: %w", err)
	require.ErrorAs(t, wrapped, &ce)
	assert.Equal(t, ErrCodeStore, ce.Code)
}

func TestCodeflowError_WithDetails(t *testing.T) {
	err := NewError(ErrCodeDisallowed, "module not allowed").
		WithDetails(map[string]any{"module": "os"})
	assert.Equal(t, "os", err.Details["module"])
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewError(ErrCodeTimeout, "x"), ErrCodeTimeout))
	assert.False(t, HasCode(NewError(ErrCodeTimeout, "x"), ErrCodeRuntime))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeTimeout))
}

func TestExecutionResult_Constructors(t *testing.T) {
	ok := Succeeded("hello\n", 0.0123456)
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.Equal(t, "", ok.ErrorMessage())
	assert.Equal(t, 0.012, ok.ExecutionTime)

	bad := Failed(ErrCodeRuntime, "partial", "division by zero", 1.23456)
	assert.False(t, bad.Success)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "division by zero", bad.ErrorMessage())
	assert.Equal(t, ErrCodeRuntime, bad.Code)
	assert.Equal(t, 1.235, bad.ExecutionTime)
}

func TestNodeKind_Valid(t *testing.T) {
	for _, k := range ValidNodeKinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, NodeKind("subroutine").Valid())
}

func TestFlowchartGraph_Helpers(t *testing.T) {
	g := FlowchartGraph{
		Nodes: []FlowNode{
			{ID: "node_1", Kind: NodeKindStart},
			{ID: "node_2", Kind: NodeKindEnd},
		},
	}
	require.NotNil(t, g.Node("node_2"))
	assert.Nil(t, g.Node("node_9"))
	assert.Equal(t, []NodeKind{NodeKindStart, NodeKindEnd}, g.Kinds())
	assert.False(t, g.IsErrorGraph())

	eg := FlowchartGraph{Nodes: []FlowNode{{ID: ErrorNodeID, Kind: NodeKindError}}}
	assert.True(t, eg.IsErrorGraph())
}
