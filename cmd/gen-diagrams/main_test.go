package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateExamples(t *testing.T) {
	out := t.TempDir()
	n, err := generate(context.Background(), filepath.Join("..", "..", "examples"), out)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	data, err := os.ReadFile(filepath.Join(out, "fizzbuzz.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "graph TD")
	assert.Contains(t, string(data), "%% fizzbuzz")

	svg, err := os.ReadFile(filepath.Join(out, "fizzbuzz.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = os.Stat(filepath.Join(out, "countdown.txt"))
	assert.NoError(t, err)
}

func TestGenerateEmptyDir(t *testing.T) {
	_, err := generate(context.Background(), t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .star files")
}
