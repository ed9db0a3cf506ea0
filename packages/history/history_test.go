package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.Record(ctx, Entry{Action: "login", StatusCode: 200, Duration: 120 * time.Millisecond, Timestamp: base}))
	require.NoError(t, store.Record(ctx, Entry{Action: "report", StatusCode: 500, Duration: 80 * time.Millisecond, Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.Record(ctx, Entry{Action: "login", Error: "exit code 6", Timestamp: base.Add(2 * time.Second)}))

	entries, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "login", entries[0].Action)
	assert.True(t, entries[0].Failed())
	assert.Equal(t, "report", entries[1].Action)
	assert.Equal(t, 500, entries[1].StatusCode)
	assert.Equal(t, 120*time.Millisecond, entries[2].Duration)
	assert.Equal(t, base, entries[2].Timestamp)
	assert.NotEmpty(t, entries[2].ID)

	logins, err := store.Recent(ctx, "login", 10)
	require.NoError(t, err)
	assert.Len(t, logins, 2)

	limited, err := store.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecord_DefaultsTimestamp(t *testing.T) {
	store := openTestStore(t)
	before := time.Now().Add(-time.Second)

	require.NoError(t, store.Record(context.Background(), Entry{Action: "a", StatusCode: 204}))

	entries, err := store.Recent(context.Background(), "a", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Timestamp.After(before))
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, Entry{Action: "old", Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Record(ctx, Entry{Action: "new", Timestamp: now}))

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Action)
}

func TestOpen_PersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), Entry{Action: "a"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
