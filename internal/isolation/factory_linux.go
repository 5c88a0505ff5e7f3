//go:build linux

package isolation

import "log/slog"

// NewIsolator returns a cgroups v2 isolator when the hierarchy is writable,
// otherwise the timeout-only fallback.
func NewIsolator(logger *slog.Logger) Isolator {
	iso, err := NewLinuxIsolator()
	if err != nil {
		if logger != nil {
			logger.Warn("isolation: cgroups v2 unavailable, using fallback (timeout only)", "error", err)
		}
		return NewFallbackIsolator()
	}
	return iso
}
