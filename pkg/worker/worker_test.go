package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/migrations"
	"github.com/shelfmirror/shelfmirror/pkg/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	w := New(config.NewForTest(), newTestDB(t))

	assert.True(t, w.Trigger(nil))
	assert.False(t, w.Trigger(nil), "only one sync can be queued at a time")
	assert.False(t, w.Trigger([]string{"read"}))
}

func TestRunSyncSkippedWithoutCredentials(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	w := New(config.NewForTest(), db)

	// No credentials configured, so the sync is skipped and nothing lands in
	// the sync_runs table.
	w.runSync(nil)

	runs, err := sync.NewService(db).ListSyncRuns(context.Background(), sync.ListSyncRunsOptions{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStartShutdown(t *testing.T) {
	t.Parallel()

	w := New(config.NewForTest(), newTestDB(t))
	w.Start()

	done := make(chan struct{})
	go func() {
		w.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not shut down")
	}
}
