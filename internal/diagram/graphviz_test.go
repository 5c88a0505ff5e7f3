package diagram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGraphvizPNG(t *testing.T) {
	model, err := Build(linearGraph())
	require.NoError(t, err)

	png, err := RenderGraphviz(context.Background(), model, FormatPNG)
	require.NoError(t, err)

	require.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderGraphvizSVG(t *testing.T) {
	model, err := Build(branchGraph())
	require.NoError(t, err)

	svg, err := RenderGraphviz(context.Background(), model, FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "positive")
}

func TestRenderGraphvizDOT(t *testing.T) {
	model, err := Build(branchGraph())
	require.NoError(t, err)

	dot, err := RenderGraphviz(context.Background(), model, FormatDOT)
	require.NoError(t, err)

	out := string(dot)
	assert.True(t, strings.Contains(out, "digraph") || strings.Contains(out, "graph"), out)
	assert.Contains(t, out, "diamond")
	assert.Contains(t, out, "hexagon")
	assert.Contains(t, out, "Yes")
}

func TestRenderGraphvizErrorGraph(t *testing.T) {
	model, err := Build(errorGraph())
	require.NoError(t, err)

	png, err := RenderGraphviz(context.Background(), model, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, byte(0x89), png[0])
}
