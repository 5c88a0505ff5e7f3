package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/codeflow/internal/isolation"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/pkg/schema"
)

// WorkerCommand is the subcommand that runs one program read from stdin.
const WorkerCommand = "sandbox-worker"

// killGrace is how long the worker may outlive the interpreter timeout
// before the process is killed.
const killGrace = 2 * time.Second

// ProcessConfig configures a ProcessRunner.
type ProcessConfig struct {
	Exec       Config
	Executable string // defaults to os.Executable()
	MemoryMB   int
	CPUPercent int
}

// ProcessRunner executes each program in a child process under an isolator.
// The child runs the same in-process executor, so refusals and output
// limits are identical; the process adds memory, CPU and kill enforcement.
type ProcessRunner struct {
	cfg      ProcessConfig
	isolator isolation.Isolator
	logger   *slog.Logger
}

// NewProcessRunner creates a runner that spawns cfg.Executable as a worker.
func NewProcessRunner(cfg ProcessConfig, isolator isolation.Isolator, logger *slog.Logger) (*ProcessRunner, error) {
	cfg.Exec = cfg.Exec.withDefaults()
	if cfg.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		cfg.Executable = exe
	}
	logger = logging.OrDefault(logger)
	if isolator == nil {
		isolator = isolation.NewIsolator(logger)
	}
	return &ProcessRunner{cfg: cfg, isolator: isolator, logger: logger}, nil
}

// WorkerArgs returns the arguments passed to the worker subcommand.
func (r *ProcessRunner) WorkerArgs() []string {
	args := []string{
		WorkerCommand,
		"-timeout", r.cfg.Exec.Timeout.String(),
		"-max-output", strconv.Itoa(r.cfg.Exec.MaxOutput),
	}
	if r.cfg.Exec.MaxSteps > 0 {
		args = append(args, "-max-steps", strconv.FormatUint(r.cfg.Exec.MaxSteps, 10))
	}
	return args
}

// Execute spawns a worker for src and decodes its result.
func (r *ProcessRunner) Execute(ctx context.Context, src string) schema.ExecutionResult {
	log := logging.LogWith(ctx, r.logger)

	if refusal := precheck(src); refusal != nil {
		log.Info("execution refused", "code", refusal.Code, "reason", refusal.Message)
		return schema.Failed(refusal.Code, "", refusal.Message, 0)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(r.cfg.Executable, r.WorkerArgs()...)
	cmd.Stdin = strings.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = []string{"CODEFLOW_LOG_LEVEL=error"}

	limits := isolation.NewLimits(r.cfg.MemoryMB, r.cfg.CPUPercent, r.cfg.Exec.Timeout+killGrace)
	wrapped, cleanup, err := r.isolator.Wrap(ctx, cmd, limits)
	if err != nil {
		log.Error("isolate worker", "isolator", r.isolator.Name(), "error", err)
		return schema.Failed(schema.ErrCodeIsolation, "", fmt.Sprintf("sandbox isolation failed: %v", err), 0)
	}
	defer cleanup()

	start := time.Now()
	runErr := wrapped.Run()
	elapsed := time.Since(start).Seconds()

	var res schema.ExecutionResult
	if decodeErr := json.Unmarshal(stdout.Bytes(), &res); decodeErr == nil && (res.Success || res.Error != nil) {
		return res
	}

	switch {
	case ctx.Err() != nil:
		return schema.Failed(schema.ErrCodeTimeout, "", "Execution cancelled", elapsed)
	case isKilled(runErr):
		log.Warn("worker killed", "isolator", r.isolator.Name(), "error", runErr)
		return schema.Failed(schema.ErrCodeTimeout, "",
			"Execution timed out after "+formatTimeout(r.cfg.Exec.Timeout), elapsed)
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" && runErr != nil {
		detail = runErr.Error()
	}
	log.Error("worker produced no result", "error", runErr, "stderr", detail)
	return schema.Failed(schema.ErrCodeInternal, "", "sandbox worker failed: "+detail, elapsed)
}

// isKilled reports whether the worker ended by a signal, which is how both
// the deadline and the memory limit terminate it.
func isKilled(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return exitErr.ExitCode() == -1
}
