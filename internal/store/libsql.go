package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

var _ ConversationLog = (*LibSQLLog)(nil)

// LibSQLLog stores exchanges in a libSQL (embedded SQLite fork) database.
type LibSQLLog struct {
	db    *sql.DB
	limit int
}

// NewLibSQLLog opens the database at dsn, e.g. "file:/path/history.db".
// Call Migrate before use.
func NewLibSQLLog(dsn string, limit int) (*LibSQLLog, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows, so they go through QueryRow.
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}
	return &LibSQLLog{db: db, limit: limit}, nil
}

// Migrate runs all pending database migrations.
func (l *LibSQLLog) Migrate(ctx context.Context) error {
	return runMigrations(ctx, l.db)
}

// Close closes the database.
func (l *LibSQLLog) Close() error { return l.db.Close() }

func (l *LibSQLLog) Append(ctx context.Context, ex *Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin append", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, user_message, type, bot_response, created_at) VALUES (?, ?, ?, ?, ?)`,
		ex.SessionID, ex.UserMessage, ex.Type, string(ex.BotResponse), ex.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return storeError("insert exchange", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeError("exchange id", err)
	}

	if l.limit > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM exchanges WHERE session_id = ? AND id NOT IN (
			   SELECT id FROM exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?)`,
			ex.SessionID, ex.SessionID, l.limit,
		); err != nil {
			return storeError("trim session", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit append", err)
	}
	ex.ID = id
	return nil
}

func (l *LibSQLLog) List(ctx context.Context, sessionID string) ([]*Exchange, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, user_message, type, bot_response, created_at
		 FROM exchanges WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, storeError("list exchanges", err)
	}
	defer rows.Close()

	out := []*Exchange{}
	for rows.Next() {
		ex := &Exchange{}
		var resp string
		var createdMs int64
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.UserMessage, &ex.Type, &resp, &createdMs); err != nil {
			return nil, storeError("scan exchange", err)
		}
		ex.BotResponse = []byte(resp)
		ex.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list exchanges", err)
	}
	return out, nil
}

func (l *LibSQLLog) Clear(ctx context.Context, sessionID string) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM exchanges WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, storeError("clear session", err)
	}
	return res.RowsAffected()
}

func (l *LibSQLLog) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MAX(created_at) FROM exchanges GROUP BY session_id ORDER BY session_id`)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var s SessionSummary
		var lastMs int64
		if err := rows.Scan(&s.SessionID, &s.Count, &lastMs); err != nil {
			return nil, storeError("scan session", err)
		}
		s.LastAt = time.UnixMilli(lastMs).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list sessions", err)
	}
	return out, nil
}

func (l *LibSQLLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, storeError("prune exchanges", err)
	}
	return res.RowsAffected()
}
