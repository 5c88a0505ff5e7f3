package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/pkg/schema"
)

type harness struct {
	env    *env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.env = &env{
		stdin:    strings.NewReader(stdin),
		stdout:   h.stdout,
		stderr:   h.stderr,
		getenv:   func(string) string { return "" },
		settings: filepath.Join(t.TempDir(), "settings.json"),
	}
	return h
}

func (h *harness) run(args ...string) int {
	return run(context.Background(), h.env, args)
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.star")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestUsageAndUnknownCommand(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 2, h.run())
	assert.Contains(t, h.stderr.String(), "Usage: codeflow")

	h = newHarness(t, "")
	assert.Equal(t, 2, h.run("explode"))
	assert.Contains(t, h.stderr.String(), `unknown command "explode"`)
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("version"))
	assert.Equal(t, version+"\n", h.stdout.String())
}

func TestFlowchartFromProblem(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("flowchart", "-problem",
		"Please get user input, calculate the total, and display the output"), h.stderr.String())

	var g schema.FlowchartGraph
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &g))
	assert.Equal(t, []schema.NodeKind{
		schema.NodeKindStart, schema.NodeKindInput, schema.NodeKindProcess,
		schema.NodeKindOutput, schema.NodeKindEnd,
	}, g.Kinds())
}

func TestFlowchartRequiresOneSource(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 1, h.run("flowchart"))
	assert.Contains(t, h.stderr.String(), "exactly one of -problem or -file")

	h = newHarness(t, "")
	assert.Equal(t, 1, h.run("flowchart", "-problem", "x", "-file", "y.star"))
}

func TestFlowchartQuery(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("flowchart", "-problem", "read a number", "-query", ".title"), h.stderr.String())
	assert.Equal(t, `"`+schema.TitleProblem+`"`+"\n", h.stdout.String())
}

func TestFlowchartFromStdinAsMermaid(t *testing.T) {
	h := newHarness(t, "x = 1\nprint(x)\n")
	require.Equal(t, 0, h.run("flowchart", "-file", "-", "-format", "mermaid"), h.stderr.String())
	assert.True(t, strings.HasPrefix(h.stdout.String(), "graph TD\n"))
}

func TestFlowchartRejectsBinaryFormat(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 1, h.run("flowchart", "-problem", "read a number", "-format", "png"))
	assert.Contains(t, h.stderr.String(), "binary")
}

func TestAnalyze(t *testing.T) {
	path := writeSource(t, "while True:\n    x = 1 / 0\n")
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("analyze", "-file", path, "-query", "[.errors[].type]"), h.stderr.String())

	var categories []string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &categories))
	assert.Equal(t, []string{"potential_infinite_loop", "division_by_zero"}, categories)
}

func TestAnalyzeAsASCII(t *testing.T) {
	path := writeSource(t, "for i in range(3):\n    print(i)\n")
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("analyze", "-file", path, "-format", "ascii"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), schema.TitleCode)
	assert.Contains(t, h.stdout.String(), "[LOOP]")
}

func TestAnalyzeMissingFile(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 1, h.run("analyze", "-file", filepath.Join(t.TempDir(), "nope.star")))
	assert.Contains(t, h.stderr.String(), "read source")
}

func TestRun(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(t, "")
		require.Equal(t, 0, h.run("run", "-file", writeSource(t, `print("hello")`)), h.stderr.String())

		var res schema.ExecutionResult
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "hello\n", res.Output)
	})

	t.Run("failure exits 1 and still prints", func(t *testing.T) {
		h := newHarness(t, "")
		assert.Equal(t, 1, h.run("run", "-file", writeSource(t, "x = 1 // 0\n")))

		var res schema.ExecutionResult
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
		assert.False(t, res.Success)
		assert.Equal(t, schema.ErrCodeRuntime, res.Code)
		assert.Empty(t, h.stderr.String())
	})
}

func TestChat(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("chat", "-query", ".type", "hello", "there"), h.stderr.String())
	assert.Equal(t, `"greeting"`+"\n", h.stdout.String())

	h = newHarness(t, "")
	assert.Equal(t, 1, h.run("chat"))
	assert.Contains(t, h.stderr.String(), "No message provided")
}

func TestSandboxWorkerCommand(t *testing.T) {
	h := newHarness(t, `print("from worker")`)
	require.Equal(t, 0, h.run("sandbox-worker", "-timeout", "2s", "-max-output", "100"), h.stderr.String())

	var res schema.ExecutionResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "from worker\n", res.Output)
}

func TestInvalidConfigIsReported(t *testing.T) {
	h := newHarness(t, "")
	h.env.getenv = func(k string) string {
		if k == "CODEFLOW_SANDBOX_MODE" {
			return "vm"
		}
		return ""
	}
	assert.Equal(t, 1, h.run("chat", "hi"))
	assert.Contains(t, h.stderr.String(), "invalid configuration")
}

func TestHandlerSwapper(t *testing.T) {
	first := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("first")) })
	second := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("second")) })

	s := newHandlerSwapper(first)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "first", rec.Body.String())

	s.Swap(second)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "second", rec.Body.String())
}

func TestAppHandlerWithHistory(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(t, "")
	a, err := newApp(context.Background(), cfg, h.env.logger(cfg), true)
	require.NoError(t, err)
	defer a.close()

	handler, err := a.apiHandler(cfg, h.env.logger(cfg))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	sessions, err := a.history.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestExamplesRun(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.star"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			h := newHarness(t, "")
			require.Equal(t, 0, h.run("run", "-file", path), h.stdout.String()+h.stderr.String())
		})
	}
}
