package player

import (
	"context"
	"math/rand"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pianonics/pianobot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repository.Repo {
	t.Helper()
	db, err := repository.OpenAt("file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewRepo(db)
}

func seedGuild(t *testing.T, repo *repository.Repo, guild string, urls ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, guild))
	if len(urls) > 0 {
		n, err := repo.Enqueue(ctx, guild, urls)
		require.NoError(t, err)
		require.Equal(t, len(urls), n)
	}
}

func TestGetNextSequentialOrder(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a", "b", "c")

	for _, want := range []string{"a", "b", "c"} {
		url, ok, err := sel.GetNext(ctx, "g1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, url)
	}
}

func TestGetNextForcePrecedence(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a", "b")
	require.NoError(t, repo.EnqueueForceNext(ctx, "g1", "urgent"))

	url, ok, err := sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "urgent", url)

	url, ok, err = sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", url)
}

func TestGetNextForceBeatsShuffle(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelectorWithSource(repo, rand.NewSource(42))
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a", "b", "c")
	_, err := repo.ToggleShuffle(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, repo.EnqueueForceNext(ctx, "g1", "urgent"))

	url, ok, err := sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "urgent", url)
}

func TestGetNextShuffleDrainsEveryEntryOnce(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelectorWithSource(repo, rand.NewSource(7))
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a", "b", "c", "d")
	_, err := repo.ToggleShuffle(ctx, "g1")
	require.NoError(t, err)

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		url, ok, err := sel.GetNext(ctx, "g1")
		require.NoError(t, err)
		require.True(t, ok)
		seen[url]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)

	_, ok, err := sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetNextLoopRestartsQueue(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a", "b")
	_, err := repo.ToggleLoop(ctx, "g1")
	require.NoError(t, err)

	var got []string
	for i := 0; i < 4; i++ {
		url, ok, err := sel.GetNext(ctx, "g1")
		require.NoError(t, err)
		require.True(t, ok)
		got = append(got, url)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, got)

	// looping never deletes the entries
	n, err := repo.CountTotal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGetNextExhaustionClearsQueue(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)
	ctx := context.Background()
	seedGuild(t, repo, "g1", "a")

	_, ok, err := sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.CountTotal(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetNextEmptyLoopedQueue(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)
	ctx := context.Background()
	seedGuild(t, repo, "g1")
	_, err := repo.ToggleLoop(ctx, "g1")
	require.NoError(t, err)

	// a single retry after the reset, never a spin
	_, ok, err := sel.GetNext(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetNextUnknownGuild(t *testing.T) {
	repo := newTestRepo(t)
	sel := NewSelector(repo)

	url, ok, err := sel.GetNext(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, url)
}
