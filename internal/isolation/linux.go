//go:build linux

package isolation

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	cgroupRoot     = "/sys/fs/cgroup"
	cgroupPrefix   = "codeflow"
	cgroupPeriod   = 100000 // cpu.max period in microseconds
	cleanupDelay   = 50 * time.Millisecond
	cleanupRetries = 10
)

var _ Isolator = (*LinuxIsolator)(nil)

// LinuxIsolator places each worker in its own cgroup v2 with memory and CPU
// ceilings, and in fresh PID and network namespaces.
type LinuxIsolator struct {
	base string
	caps IsolatorCaps
}

// NewLinuxIsolator creates a LinuxIsolator under /sys/fs/cgroup/codeflow.
// It fails when cgroups v2 is missing or the hierarchy is not writable.
func NewLinuxIsolator() (*LinuxIsolator, error) {
	data, err := os.ReadFile(filepath.Join(cgroupRoot, "cgroup.controllers"))
	if err != nil {
		return nil, fmt.Errorf("cgroups v2 not available: %w", err)
	}
	controllers := parseControllers(string(data))

	base := filepath.Join(cgroupRoot, cgroupPrefix)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create cgroup base %s: %w", base, err)
	}
	if err := enableControllers(base, controllers); err != nil {
		return nil, fmt.Errorf("enable cgroup controllers: %w", err)
	}

	return &LinuxIsolator{base: base, caps: buildCaps(controllers)}, nil
}

// Name returns "cgroups-v2".
func (l *LinuxIsolator) Name() string { return "cgroups-v2" }

// Capabilities returns the detected isolation capabilities.
func (l *LinuxIsolator) Capabilities() IsolatorCaps {
	return l.caps
}

// Wrap creates a cgroup for one worker run and clones cmd into it.
func (l *LinuxIsolator) Wrap(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := limits.ValidateWorkDir(); err != nil {
		return nil, nil, err
	}

	cgPath := filepath.Join(l.base, uuid.NewString())
	if err := os.Mkdir(cgPath, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create cgroup %s: %w", cgPath, err)
	}

	cgFD := -1
	ok := false
	defer func() {
		if !ok {
			if cgFD >= 0 {
				syscall.Close(cgFD)
			}
			removeCgroup(cgPath)
		}
	}()

	if err := l.writeLimits(cgPath, limits); err != nil {
		return nil, nil, err
	}

	fd, err := syscall.Open(cgPath, syscall.O_DIRECTORY|syscall.O_RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open cgroup fd: %w", err)
	}
	cgFD = fd

	wrapped, cancel := cloneCommand(ctx, cmd, limits)

	var cloneflags uintptr
	if l.caps.CanIsolatePID {
		cloneflags |= syscall.CLONE_NEWPID
	}
	if !limits.AllowNetwork && l.caps.CanLimitNetwork {
		cloneflags |= syscall.CLONE_NEWNET
	}
	wrapped.SysProcAttr = &syscall.SysProcAttr{
		UseCgroupFD: true,
		CgroupFD:    cgFD,
		Cloneflags:  cloneflags,
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			syscall.Close(cgFD)
			if cancel != nil {
				cancel()
			}
			if !removeCgroup(cgPath) {
				slog.Warn("isolation: failed to remove cgroup after retries", "path", cgPath)
			}
		})
	}

	ok = true
	return wrapped, cleanup, nil
}

func (l *LinuxIsolator) writeLimits(cgPath string, limits ResourceLimits) error {
	if limits.MaxMemoryBytes > 0 && l.caps.CanLimitMemory {
		if err := writeControl(cgPath, "memory.max", strconv.FormatInt(limits.MaxMemoryBytes, 10)); err != nil {
			return fmt.Errorf("set memory.max: %w", err)
		}
		// No swap, so the ceiling is hard.
		_ = writeControl(cgPath, "memory.swap.max", "0")
	}
	if limits.MaxCPUPercent > 0 && l.caps.CanLimitCPU {
		if err := writeControl(cgPath, "cpu.max", formatCPUMax(limits.MaxCPUPercent)); err != nil {
			return fmt.Errorf("set cpu.max: %w", err)
		}
	}
	return nil
}

func writeControl(cgPath, file, value string) error {
	return os.WriteFile(filepath.Join(cgPath, file), []byte(value), 0o644)
}

// formatCPUMax converts a CPU percentage (1-100) to the cpu.max "QUOTA PERIOD" form.
func formatCPUMax(percent int) string {
	if percent <= 0 || percent > 100 {
		return fmt.Sprintf("max %d", cgroupPeriod)
	}
	return fmt.Sprintf("%d %d", cgroupPeriod*percent/100, cgroupPeriod)
}

// removeCgroup kills every process in the cgroup and removes it.
func removeCgroup(cgPath string) bool {
	if err := writeControl(cgPath, "cgroup.kill", "1"); err != nil {
		killCgroupProcesses(cgPath)
	}
	for range cleanupRetries {
		if err := os.Remove(cgPath); err == nil || os.IsNotExist(err) {
			return true
		}
		time.Sleep(cleanupDelay)
	}
	return false
}

// killCgroupProcesses is the fallback for kernels without cgroup.kill.
func killCgroupProcesses(cgPath string) {
	f, err := os.Open(filepath.Join(cgPath, "cgroup.procs"))
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		pid, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || pid <= 0 {
			continue
		}
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			slog.Warn("isolation: failed to kill process in cgroup", "pid", pid, "error", err)
		}
	}
}

func parseControllers(data string) map[string]bool {
	m := make(map[string]bool)
	for _, c := range strings.Fields(data) {
		m[c] = true
	}
	return m
}

func buildCaps(controllers map[string]bool) IsolatorCaps {
	return IsolatorCaps{
		CanLimitMemory:  controllers["memory"],
		CanLimitCPU:     controllers["cpu"],
		CanLimitNetwork: true, // CLONE_NEWNET, not a controller
		CanIsolatePID:   controllers["pids"],
	}
}

func enableControllers(base string, controllers map[string]bool) error {
	var enable []string
	for _, c := range []string{"memory", "cpu", "pids"} {
		if controllers[c] {
			enable = append(enable, "+"+c)
		}
	}
	if len(enable) == 0 {
		return nil
	}
	return writeControl(base, "cgroup.subtree_control", strings.Join(enable, " "))
}
