package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadUnknownSessionIsEmpty(t *testing.T) {
	store := newSQLite(t)
	turns, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestAppendPreservesOrder(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", domain.Turn{
			Role:         domain.RoleShell,
			UserText:     fmt.Sprintf("q%d", i),
			ResponseText: fmt.Sprintf("a%d", i),
			Timestamp:    base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.Append(ctx, "other", domain.Turn{Role: domain.RoleDefault, UserText: "x", ResponseText: "y"}))

	turns, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("q%d", i), turn.UserText)
		assert.Equal(t, fmt.Sprintf("a%d", i), turn.ResponseText)
		assert.True(t, turn.Timestamp.Equal(base.Add(time.Duration(i)*time.Second)))
	}
}

func TestAppendRejectsEmptySession(t *testing.T) {
	store := newSQLite(t)
	assert.Error(t, store.Append(context.Background(), "", domain.Turn{}))
}

func TestListSummarisesSessions(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "old", domain.Turn{UserText: "1", ResponseText: "1"}))
	require.NoError(t, store.Append(ctx, "new", domain.Turn{UserText: "1", ResponseText: "1"}))
	require.NoError(t, store.Append(ctx, "new", domain.Turn{UserText: "2", ResponseText: "2"}))

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, 2, summaries[0].Turns)
	assert.Equal(t, "old", summaries[1].ID)
	assert.False(t, summaries[1].UpdatedAt.IsZero())
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, "shared", domain.Turn{UserText: fmt.Sprint(i), ResponseText: "ok"}))
		}(i)
	}
	wg.Wait()

	turns, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, turns, 10)
}

func TestSessionsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), "s", domain.Turn{UserText: "q", ResponseText: "a"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	turns, err := reopened.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), domain.SessionSettings{Backend: domain.SessionBackendSQLite}, dir)
	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(filepath.Join(dir, "chat", "sessions.db"))
	assert.NoError(t, err)

	_, err = Open(context.Background(), domain.SessionSettings{Backend: "mongo"}, dir)
	assert.True(t, domain.IsConfigError(err))
}
