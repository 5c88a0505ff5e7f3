package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rendis/codeflow/internal/diagram"
	"github.com/rendis/codeflow/internal/expressions"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/sandbox"
	"github.com/rendis/codeflow/internal/scanner"
	"github.com/rendis/codeflow/pkg/schema"
)

func runFlowchart(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("flowchart")
	problem := fs.String("problem", "", "problem description to chart")
	file := fs.String("file", "", "Starlark source file to chart (- for stdin)")
	query := fs.String("query", "", "jq expression applied to the JSON output")
	format := fs.String("format", "", "print a diagram instead of JSON: mermaid, ascii, dot or svg")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*problem == "") == (*file == "") {
		return fmt.Errorf("flowchart: exactly one of -problem or -file is required")
	}

	a, err := e.oneShotApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var g schema.FlowchartGraph
	if *problem != "" {
		g = a.synth.FromProblem(ctx, *problem)
	} else {
		src, rErr := e.readSource(*file)
		if rErr != nil {
			return rErr
		}
		g = a.synth.FromCode(ctx, src)
	}

	if *format != "" {
		return e.printDiagram(ctx, g, *format)
	}
	return e.emit(ctx, g, *query)
}

func runAnalyze(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("analyze")
	file := fs.String("file", "", "Starlark source file (- for stdin)")
	query := fs.String("query", "", "jq expression applied to the JSON output")
	format := fs.String("format", "", "print a diagram instead of JSON: mermaid, ascii, dot or svg")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("analyze: -file is required")
	}
	src, err := e.readSource(*file)
	if err != nil {
		return err
	}

	a, err := e.oneShotApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	g := a.synth.FromCode(ctx, src)
	if *format != "" {
		return e.printDiagram(ctx, g, *format)
	}
	return e.emit(ctx, map[string]any{
		"flowchart": g,
		"errors":    scanner.Scan(src),
	}, *query)
}

func runRun(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("run")
	file := fs.String("file", "", "Starlark source file (- for stdin)")
	query := fs.String("query", "", "jq expression applied to the JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("run: -file is required")
	}
	src, err := e.readSource(*file)
	if err != nil {
		return err
	}

	a, err := e.oneShotApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.pool.Execute(ctx, src)
	if err := e.emit(ctx, res, *query); err != nil {
		return err
	}
	if !res.Success {
		return errExitStatus
	}
	return nil
}

func runChat(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("chat")
	query := fs.String("query", "", "jq expression applied to the JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return fmt.Errorf("chat: No message provided")
	}

	a, err := e.oneShotApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return e.emit(ctx, a.assistant.Reply(ctx, message), *query)
}

// runSandboxWorker executes one program from stdin for a ProcessRunner. It
// reads no settings file; the parent passes limits as flags.
func runSandboxWorker(ctx context.Context, e *env, args []string) error {
	cfg, err := sandbox.ParseWorkerFlags(args)
	if err != nil {
		return err
	}
	logger := logging.New(e.stderr, e.getenv("CODEFLOW_LOG_LEVEL"), "text")
	return sandbox.RunWorker(ctx, e.stdin, e.stdout, cfg, logger)
}

// oneShotApp wires the components for a single command, without history.
func (e *env) oneShotApp(ctx context.Context) (*app, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, e.logger(cfg), false)
}

func (e *env) readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(e.stdin, sandbox.MaxSourceBytes+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if len(data) > sandbox.MaxSourceBytes {
		return "", fmt.Errorf("read source: %s exceeds %d bytes", path, sandbox.MaxSourceBytes)
	}
	return string(data), nil
}

// emit prints v as indented JSON, or each result of a jq query over it.
func (e *env) emit(ctx context.Context, v any, query string) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if query == "" {
		return enc.Encode(v)
	}
	results, err := expressions.NewGoJQEngine().Query(ctx, query, v)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// printDiagram writes a text rendering of g.
func (e *env) printDiagram(ctx context.Context, g schema.FlowchartGraph, format string) error {
	out, err := diagram.Render(ctx, g, format)
	if err != nil {
		return err
	}
	if !out.Text() {
		return fmt.Errorf("format %s is binary; use the render API or the MCP diagram tool", out.Format)
	}
	_, err = e.stdout.Write(out.Data)
	return err
}
