package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderASCIILinear(t *testing.T) {
	model, err := Build(linearGraph())
	require.NoError(t, err)

	output := RenderASCII(model)

	assert.Contains(t, output, "=== Code Flow Diagram ===")
	assert.Contains(t, output, "Start")
	assert.Contains(t, output, "[IN] Read input")
	assert.Contains(t, output, "total = a + b")
	assert.Contains(t, output, "[OUT] print(total)")
	assert.Contains(t, output, "╭")
	assert.Contains(t, output, "┌")
	assert.Equal(t, 4, strings.Count(output, "▼"))
	assert.NotContains(t, output, "\x1b[", "output must not carry ANSI escapes")
}

func TestRenderASCIIOrdersByLevel(t *testing.T) {
	model, err := Build(linearGraph())
	require.NoError(t, err)

	output := RenderASCII(model)
	order := []string{"Start", "Read input", "total = a + b", "print(total)", "End"}
	last := -1
	for _, label := range order {
		idx := strings.Index(output, label)
		require.GreaterOrEqual(t, idx, 0, label)
		assert.Greater(t, idx, last, "%s out of order", label)
		last = idx
	}
}

func TestRenderASCIIBranchLabels(t *testing.T) {
	model, err := Build(branchGraph())
	require.NoError(t, err)

	output := RenderASCII(model)

	assert.Contains(t, output, "▼ Yes, No")
	assert.Contains(t, output, "positive")
	assert.Contains(t, output, "negative")
	assert.Contains(t, output, "[LOOP] for i in range(3)")
	assert.Contains(t, output, "╔")

	// Sibling nodes share a row.
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "positive") {
			assert.Contains(t, line, "negative")
		}
	}
}

func TestRenderASCIIErrorGraph(t *testing.T) {
	model, err := Build(errorGraph())
	require.NoError(t, err)

	output := RenderASCII(model)
	assert.Contains(t, output, "[ERROR] Syntax Error: invalid syntax")
	assert.Contains(t, output, "┏")
	assert.NotContains(t, output, "▼")
}
