package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournalTestDB(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping test: TEST_DB_DSN not set")
	}
	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping test: cannot connect to test database: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		t.Skipf("Skipping test: cannot ping test database: %v", err)
	}
	t.Cleanup(db.Close)

	_, thisFile, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
	sqlDB := stdlib.OpenDBFromPool(db)
	defer sqlDB.Close()
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(sqlDB, dir))

	_, err = db.Exec(ctx, "TRUNCATE submissions")
	require.NoError(t, err)
	return db
}

func TestPostgresRepo_RecordAndList(t *testing.T) {
	db := setupJournalTestDB(t)
	repo := NewPostgresRepo(db, 2*time.Second)
	ctx := context.Background()

	args, _ := json.Marshal([]any{3})
	first := &Submission{Function: "voteBook", Arguments: args, Amount: 100, Caller: "ak_me", Status: StatusSubmitted, TxHash: "th_1"}
	require.NoError(t, repo.Record(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &Submission{Function: "registerBook", Caller: "ak_me", Status: StatusFailed, Error: "aborted"}
	require.NoError(t, repo.Record(ctx, second))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, "aborted", got[0].Error)
	assert.JSONEq(t, "[]", string(got[0].Arguments))
	assert.Equal(t, int64(100), got[1].Amount)
	assert.JSONEq(t, "[3]", string(got[1].Arguments))
}
