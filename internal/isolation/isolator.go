// Package isolation runs sandbox worker processes under platform resource limits.
package isolation

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/codeflow/pkg/schema"
)

// ResourceLimits specifies constraints for one sandbox worker process.
type ResourceLimits struct {
	MaxMemoryBytes int64         `json:"max_memory_bytes,omitempty"`
	MaxCPUPercent  int           `json:"max_cpu_percent,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	AllowNetwork   bool          `json:"allow_network"`
	WorkDir        string        `json:"work_dir,omitempty"`
	DenyPaths      []string      `json:"deny_paths,omitempty"`
}

// DefaultDenyPaths are directories a worker may never use as its working directory.
var DefaultDenyPaths = []string{"/etc", "/proc", "/sys", "/dev", "/root", "/var/run"}

// NewLimits builds limits from megabytes, a CPU percentage and a timeout.
func NewLimits(memoryMB, cpuPercent int, timeout time.Duration) ResourceLimits {
	return ResourceLimits{
		MaxMemoryBytes: int64(memoryMB) << 20,
		MaxCPUPercent:  cpuPercent,
		Timeout:        timeout,
		DenyPaths:      DefaultDenyPaths,
	}
}

// ValidateWorkDir checks that WorkDir is not under any deny path.
// An empty WorkDir is always accepted.
func (r ResourceLimits) ValidateWorkDir() error {
	if r.WorkDir == "" {
		return nil
	}
	clean, err := resolveCleanPath(r.WorkDir)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeIsolation, "invalid work dir %q: %v", r.WorkDir, err)
	}

	// Fail closed on a deny entry that cannot be resolved.
	for _, deny := range r.DenyPaths {
		base, err := resolveCleanPath(deny)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeIsolation,
				"work dir %q denied: invalid deny rule %q: %v", r.WorkDir, deny, err)
		}
		if isUnderPath(clean, base) {
			return schema.NewErrorf(schema.ErrCodeIsolation, "work dir %q is denied", r.WorkDir)
		}
	}
	return nil
}

// resolveCleanPath cleans a path, makes it absolute and resolves symlinks on
// its longest existing prefix.
func resolveCleanPath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains null byte")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	dir := abs
	for range 256 {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, abs)
			if err != nil {
				return abs, nil
			}
			return filepath.Join(resolved, rel), nil
		}
		dir = parent
	}
	return abs, nil
}

// isUnderPath reports whether path equals base or lies beneath it.
func isUnderPath(path, base string) bool {
	if path == base {
		return true
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsolatorCaps describes what a platform's isolator can enforce.
type IsolatorCaps struct {
	CanLimitMemory  bool `json:"can_limit_memory"`
	CanLimitCPU     bool `json:"can_limit_cpu"`
	CanLimitNetwork bool `json:"can_limit_network"`
	CanIsolatePID   bool `json:"can_isolate_pid"`
}

// Isolator wraps a command with platform-specific process isolation.
// The returned cleanup must always be called once the process has exited,
// and the caller must run the returned command, not the original.
type Isolator interface {
	Name() string
	Wrap(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, func(), error)
	Capabilities() IsolatorCaps
}

// cloneCommand rebuilds cmd on exec.CommandContext so cancellation kills the
// process, applying the limit's timeout and work dir.
func cloneCommand(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, context.CancelFunc) {
	execCtx := ctx
	var cancel context.CancelFunc
	if limits.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, limits.Timeout)
	}

	wrapped := exec.CommandContext(execCtx, cmd.Path, cmd.Args[1:]...)
	wrapped.Args = cmd.Args
	wrapped.Dir = cmd.Dir
	if limits.WorkDir != "" {
		wrapped.Dir = limits.WorkDir
	}
	wrapped.Env = cmd.Env
	wrapped.Stdin = cmd.Stdin
	wrapped.Stdout = cmd.Stdout
	wrapped.Stderr = cmd.Stderr

	wrapped.Cancel = func() error {
		if wrapped.Process != nil {
			return wrapped.Process.Kill()
		}
		return nil
	}
	wrapped.WaitDelay = 2 * time.Second
	return wrapped, cancel
}
