package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/pkg/schema"
)

var base = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestLibSQL(t *testing.T, limit int) *LibSQLLog {
	t.Helper()
	l, err := NewLibSQLLog("file:"+filepath.Join(t.TempDir(), "history.db"), limit)
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// forEachLog runs fn against every ConversationLog implementation.
func forEachLog(t *testing.T, limit int, fn func(t *testing.T, l ConversationLog)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryLog(limit)) })
	t.Run("libsql", func(t *testing.T) { fn(t, newTestLibSQL(t, limit)) })
}

func exchange(session, msg string, at time.Time) *Exchange {
	return &Exchange{
		SessionID:   session,
		UserMessage: msg,
		Type:        "greeting",
		BotResponse: json.RawMessage(`{"message":"hi"}`),
		CreatedAt:   at,
	}
}

func TestAppendAndList(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		sid := uuid.NewString()

		first := exchange(sid, "hello", base)
		require.NoError(t, l.Append(ctx, first))
		require.NoError(t, l.Append(ctx, exchange(sid, "again", base.Add(time.Second))))
		require.NoError(t, l.Append(ctx, exchange("other", "x", base)))
		assert.NotZero(t, first.ID)

		got, err := l.List(ctx, sid)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "hello", got[0].UserMessage)
		assert.Equal(t, "again", got[1].UserMessage)
		assert.Equal(t, base, got[0].CreatedAt)
		assert.JSONEq(t, `{"message":"hi"}`, string(got[0].BotResponse))
		assert.Less(t, got[0].ID, got[1].ID)
	})
}

func TestListUnknownSessionIsEmpty(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		got, err := l.List(context.Background(), "missing")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestAppendSetsTimestamp(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ex := exchange("s", "m", time.Time{})
		require.NoError(t, l.Append(context.Background(), ex))
		assert.WithinDuration(t, time.Now(), ex.CreatedAt, time.Minute)
	})
}

func TestPerSessionLimit(t *testing.T) {
	forEachLog(t, 3, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		for i := range 5 {
			require.NoError(t, l.Append(ctx, exchange("s", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))))
		}
		require.NoError(t, l.Append(ctx, exchange("t", "keep", base)))

		got, err := l.List(ctx, "s")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "m2", got[0].UserMessage)
		assert.Equal(t, "m4", got[2].UserMessage)

		other, err := l.List(ctx, "t")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})
}

func TestClear(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		require.NoError(t, l.Append(ctx, exchange("s", "a", base)))
		require.NoError(t, l.Append(ctx, exchange("s", "b", base)))

		n, err := l.Clear(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = l.Clear(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		got, err := l.List(ctx, "s")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSessions(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		require.NoError(t, l.Append(ctx, exchange("b", "1", base)))
		require.NoError(t, l.Append(ctx, exchange("a", "1", base)))
		require.NoError(t, l.Append(ctx, exchange("a", "2", base.Add(time.Minute))))

		got, err := l.Sessions(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, SessionSummary{SessionID: "a", Count: 2, LastAt: base.Add(time.Minute)}, got[0])
		assert.Equal(t, "b", got[1].SessionID)
	})
}

func TestPrune(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		require.NoError(t, l.Append(ctx, exchange("old", "1", base.Add(-2*time.Hour))))
		require.NoError(t, l.Append(ctx, exchange("mixed", "old", base.Add(-2*time.Hour))))
		require.NoError(t, l.Append(ctx, exchange("mixed", "new", base)))

		n, err := l.Prune(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		sessions, err := l.Sessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "mixed", sessions[0].SessionID)

		got, err := l.List(ctx, "mixed")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "new", got[0].UserMessage)
	})
}

func TestConcurrentAppend(t *testing.T) {
	forEachLog(t, 0, func(t *testing.T, l ConversationLog) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, l.Append(ctx, exchange("s", fmt.Sprint(i), base)))
			}()
		}
		wg.Wait()

		got, err := l.List(ctx, "s")
		require.NoError(t, err)
		assert.Len(t, got, 20)
	})
}

func TestMemoryListReturnsCopies(t *testing.T) {
	l := NewMemoryLog(0)
	ctx := context.Background()
	require.NoError(t, l.Append(ctx, exchange("s", "orig", base)))

	got, _ := l.List(ctx, "s")
	got[0].UserMessage = "mutated"

	again, _ := l.List(ctx, "s")
	assert.Equal(t, "orig", again[0].UserMessage)
}

func TestMigrateIdempotent(t *testing.T) {
	l := newTestLibSQL(t, 0)
	require.NoError(t, l.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	l, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLog{}, l)

	l, err = Open(ctx, Options{Driver: DriverLibSQL, DSN: "file:" + filepath.Join(t.TempDir(), "nested", "h.db"), Limit: 2})
	require.NoError(t, err)
	assert.IsType(t, &LibSQLLog{}, l)
	require.NoError(t, l.Append(ctx, exchange("s", "m", base)))
	require.NoError(t, l.Close())

	_, err = Open(ctx, Options{Driver: "postgres"})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- only a comment;\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a (x);")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE INDEX i")
}
