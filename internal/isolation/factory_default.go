//go:build !linux

package isolation

import "log/slog"

// NewIsolator returns the timeout-only fallback on non-Linux platforms.
func NewIsolator(logger *slog.Logger) Isolator {
	if logger != nil {
		logger.Warn("isolation: no kernel isolation available, using fallback (timeout only)")
	}
	return NewFallbackIsolator()
}
