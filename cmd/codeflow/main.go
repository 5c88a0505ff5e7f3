// Command codeflow turns problem descriptions and Starlark source into
// flowcharts, runs Starlark in a restricted sandbox and serves both over
// HTTP and MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/sandbox"
)

const usage = `Usage: codeflow <command> [flags]

Commands:
  serve           run the HTTP API
  mcp             run the MCP server on stdio
  flowchart       chart a problem description (-problem) or source file (-file)
  analyze         chart and scan a source file (-file)
  run             execute a source file in the sandbox (-file)
  chat            ask the programming assistant
  version         print the version
`

// env carries the process surroundings so commands can be tested.
type env struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string
	settings string
}

// errExitStatus asks run to exit non-zero without printing an error.
var errExitStatus = errors.New("exit status 1")

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"serve":     runServe,
	"mcp":       runMCP,
	"flowchart": runFlowchart,
	"analyze":   runAnalyze,
	"run":       runRun,
	"chat":      runChat,
	"version": func(_ context.Context, e *env, _ []string) error {
		printVersion(e.stdout)
		return nil
	},
	sandbox.WorkerCommand: runSandboxWorker,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		getenv:   os.Getenv,
		settings: settingsPath(),
	}
	os.Exit(run(ctx, e, os.Args[1:]))
}

// run dispatches to a subcommand and returns the process exit code.
func run(ctx context.Context, e *env, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(e.stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(e.stderr, "Error: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	err := cmd(ctx, e, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errExitStatus):
		return 1
	default:
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
}

// config loads settings for commands that need them.
func (e *env) config() (Config, error) {
	return loadConfig(e.settings, e.getenv)
}

// logger builds the command logger. Logs always go to stderr so stdout
// stays clean for JSON output and the MCP protocol.
func (e *env) logger(cfg Config) *slog.Logger {
	return logging.New(e.stderr, cfg.LogLevel, cfg.LogFormat)
}

// newFlagSet creates a FlagSet that reports errors instead of exiting.
func (e *env) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
