package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/source"
	"github.com/rendis/codeflow/pkg/schema"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
)

// Defaults for Config zero values.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxOutput = 10000
)

// Runner executes untrusted source and reports the outcome. Implementations
// never return an error: every failure is encoded in the result.
type Runner interface {
	Execute(ctx context.Context, src string) schema.ExecutionResult
}

// Config bounds one execution.
type Config struct {
	Timeout   time.Duration // wall-clock limit; 0 means DefaultTimeout
	MaxOutput int           // captured characters; 0 means DefaultMaxOutput
	MaxSteps  uint64        // interpreter step limit; 0 means unlimited
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxOutput <= 0 {
		c.MaxOutput = DefaultMaxOutput
	}
	return c
}

// cancelGrace is how long Execute waits for the interpreter to notice a
// cancellation before abandoning it. A builtin call is not interruptible.
const cancelGrace = 50 * time.Millisecond

// Executor runs programs in-process on a fresh interpreter thread per call.
type Executor struct {
	cfg         Config
	logger      *slog.Logger
	predeclared starlark.StringDict
	check       func(src string) *schema.CodeflowError
}

// NewExecutor creates an in-process executor.
func NewExecutor(cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:         cfg.withDefaults(),
		logger:      logging.OrDefault(logger),
		predeclared: predeclared,
		check:       precheck,
	}
}

// Config returns the effective limits.
func (e *Executor) Config() Config { return e.cfg }

type execOutcome struct {
	err   error
	panic any
}

// Execute runs src under the allow-list and the configured limits. The
// result is returned no later than the deadline plus cancelGrace, even when
// the interpreter is stuck inside a builtin; that goroutine is abandoned and
// its output discarded.
func (e *Executor) Execute(ctx context.Context, src string) (result schema.ExecutionResult) {
	log := logging.LogWith(ctx, e.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("sandbox panic", "panic", r)
			result = schema.Failed(schema.ErrCodeInternal, "", fmt.Sprintf("internal error: %v", r), 0)
		}
	}()

	if refusal := e.check(src); refusal != nil {
		log.Info("execution refused", "code", refusal.Code, "reason", refusal.Message)
		return schema.Failed(refusal.Code, "", refusal.Message, 0)
	}

	out := newOutputBuffer(e.cfg.MaxOutput)
	thread := &starlark.Thread{
		Name: "main",
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteString("\n")
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("module %q not available", module)
		},
	}

	var stepsExceeded atomic.Bool
	if e.cfg.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.cfg.MaxSteps)
		thread.OnMaxSteps = func(th *starlark.Thread) {
			stepsExceeded.Store(true)
			th.Cancel("too many steps")
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan execOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execOutcome{panic: r}
			}
		}()
		_, err := starlark.ExecFileOptions(source.Options(), thread, source.Filename, src, e.predeclared)
		done <- execOutcome{err: err}
	}()

	var oc execOutcome
	select {
	case oc = <-done:
	case <-runCtx.Done():
		thread.Cancel(runCtx.Err().Error())
		select {
		case oc = <-done:
		case <-time.After(cancelGrace):
			log.Warn("interpreter did not stop after cancel; abandoning it")
			oc = execOutcome{err: runCtx.Err()}
		}
	}
	elapsed := time.Since(start).Seconds()

	if oc.panic != nil {
		log.Error("interpreter panic", "panic", oc.panic)
		return schema.Failed(schema.ErrCodeInternal, out.String(),
			fmt.Sprintf("internal error: %v", oc.panic), elapsed)
	}
	if oc.err == nil {
		log.Debug("execution finished", "seconds", elapsed, "truncated", out.Truncated())
		return schema.Succeeded(out.String(), elapsed)
	}

	switch {
	case runCtx.Err() != nil && ctx.Err() == nil:
		msg := "Execution timed out after " + formatTimeout(e.cfg.Timeout)
		log.Warn("execution timed out", "timeout", e.cfg.Timeout)
		return schema.Failed(schema.ErrCodeTimeout, out.String(), msg, elapsed)
	case ctx.Err() != nil:
		log.Info("execution cancelled", "error", ctx.Err())
		return schema.Failed(schema.ErrCodeTimeout, out.String(), "Execution cancelled", elapsed)
	case stepsExceeded.Load():
		msg := fmt.Sprintf("Execution exceeded %d steps", e.cfg.MaxSteps)
		return schema.Failed(schema.ErrCodeRuntime, out.String(), msg, elapsed)
	}

	res := schema.Failed(schema.ErrCodeRuntime, out.String(), runtimeMessage(oc.err), elapsed)
	var evalErr *starlark.EvalError
	if errors.As(oc.err, &evalErr) {
		res.Traceback = evalErr.Backtrace()
	}
	log.Debug("execution failed", "error", res.ErrorMessage())
	return res
}

// runtimeMessage extracts the user-facing fault text. Resolution errors are
// reported with their line, like a name error at run time.
func runtimeMessage(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		first := resolveErrs[0]
		return fmt.Sprintf("line %d: %s", first.Pos.Line, first.Msg)
	}
	return strings.TrimPrefix(err.Error(), source.Filename+":")
}

// formatTimeout renders 10s as "10s" and 1500ms as "1.5s".
func formatTimeout(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
