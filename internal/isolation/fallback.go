package isolation

import (
	"context"
	"os/exec"
)

var _ Isolator = (*FallbackIsolator)(nil)

// FallbackIsolator only enforces the timeout: the worker is killed when the
// deadline passes. Used where cgroups v2 is unavailable.
type FallbackIsolator struct{}

// NewFallbackIsolator creates a FallbackIsolator.
func NewFallbackIsolator() *FallbackIsolator {
	return &FallbackIsolator{}
}

// Name returns "fallback".
func (f *FallbackIsolator) Name() string { return "fallback" }

// Wrap clones cmd with timeout enforcement.
func (f *FallbackIsolator) Wrap(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := limits.ValidateWorkDir(); err != nil {
		return nil, nil, err
	}

	wrapped, cancel := cloneCommand(ctx, cmd, limits)
	cleanup := func() {
		if cancel != nil {
			cancel()
		}
	}
	return wrapped, cleanup, nil
}

// Capabilities reports nothing beyond the timeout.
func (f *FallbackIsolator) Capabilities() IsolatorCaps {
	return IsolatorCaps{}
}
