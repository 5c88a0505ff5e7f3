// Package store keeps the chat conversation log.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/codeflow/pkg/schema"
)

// ConversationLog persists chat exchanges per session.
// All implementations must be safe for concurrent use.
type ConversationLog interface {
	// Append stores ex, assigning ID and CreatedAt when unset, and drops the
	// session's oldest exchanges beyond the configured limit.
	Append(ctx context.Context, ex *Exchange) error
	// List returns the session's exchanges oldest first.
	List(ctx context.Context, sessionID string) ([]*Exchange, error)
	// Clear deletes the session and reports how many exchanges it held.
	Clear(ctx context.Context, sessionID string) (int64, error)
	// Sessions summarises every session that has exchanges.
	Sessions(ctx context.Context) ([]SessionSummary, error)
	// Prune deletes exchanges created before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverLibSQL = "libsql"
)

// Options configure Open.
type Options struct {
	Driver string
	DSN    string
	Limit  int // exchanges kept per session; 0 means unlimited
	Logger *slog.Logger
}

// Open builds the configured conversation log and applies migrations where
// the driver needs them.
func Open(ctx context.Context, opts Options) (ConversationLog, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryLog(opts.Limit), nil
	case DriverLibSQL:
		dsn, err := expandDSN(opts.DSN)
		if err != nil {
			return nil, err
		}
		l, err := NewLibSQLLog(dsn, opts.Limit)
		if err != nil {
			return nil, err
		}
		if err := l.Migrate(ctx); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("migrate conversation log: %w", err)
		}
		if opts.Logger != nil {
			opts.Logger.Info("conversation log opened", "driver", DriverLibSQL, "dsn", dsn)
		}
		return l, nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown history driver %q", opts.Driver)
	}
}

// expandDSN resolves a leading ~ in file DSNs and creates the parent directory.
func expandDSN(dsn string) (string, error) {
	path, ok := strings.CutPrefix(dsn, "file:")
	if !ok {
		return dsn, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home for %q: %w", dsn, err)
		}
		path = filepath.Join(home, rest)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}
	return "file:" + path, nil
}

func storeError(op string, err error) *schema.CodeflowError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}
