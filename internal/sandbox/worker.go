package sandbox

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
)

// MaxSourceBytes caps the program a worker accepts on stdin.
const MaxSourceBytes = 1 << 20

// RunWorker reads one program from in, executes it in-process and writes the
// ExecutionResult as JSON to out.
func RunWorker(ctx context.Context, in io.Reader, out io.Writer, cfg Config, logger *slog.Logger) error {
	src, err := io.ReadAll(io.LimitReader(in, MaxSourceBytes+1))
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if len(src) > MaxSourceBytes {
		return fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)
	}

	res := NewExecutor(cfg, logger).Execute(ctx, string(src))
	if err := json.NewEncoder(out).Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// ParseWorkerFlags reads the limits passed by ProcessRunner.WorkerArgs,
// excluding the subcommand name itself.
func ParseWorkerFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet(WorkerCommand, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "execution timeout")
	fs.IntVar(&cfg.MaxOutput, "max-output", DefaultMaxOutput, "captured output characters")
	fs.Uint64Var(&cfg.MaxSteps, "max-steps", 0, "interpreter step limit (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%s: %w", WorkerCommand, err)
	}
	return cfg, nil
}
