package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueuePreservesOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	n, err := repo.Enqueue(ctx, "g1", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := repo.ListQueue(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].URL)
	assert.Equal(t, "b", entries[1].URL)
	assert.Equal(t, "c", entries[2].URL)
	for _, e := range entries {
		assert.False(t, e.AlreadyPlayed)
		assert.False(t, e.ForcePlay)
	}
}

func TestEnqueueUnknownGuild(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Enqueue(ctx, "missing", []string{"a"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, n)

	err = repo.EnqueueForceNext(ctx, "missing", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnqueueHugeBatchFallsBackPerRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	// 34000 bind variables exceed SQLITE_MAX_VARIABLE_NUMBER (32766), so
	// the bulk statement fails and every row goes through the per-row path
	urls := make([]string, 17000)
	for i := range urls {
		urls[i] = fmt.Sprintf("track-%05d", i)
	}

	n, err := repo.Enqueue(ctx, "g1", urls)
	require.NoError(t, err)
	assert.Equal(t, len(urls), n)

	entries, err := repo.ListQueue(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, len(urls))
	assert.Equal(t, "track-00000", entries[0].URL)
	assert.Equal(t, "track-16999", entries[len(urls)-1].URL)
}

func TestEnqueueEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	n, err := repo.Enqueue(ctx, "g1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestForceEntryOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	_, err := repo.Enqueue(ctx, "g1", []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, repo.EnqueueForceNext(ctx, "g1", "urgent1"))
	require.NoError(t, repo.EnqueueForceNext(ctx, "g1", "urgent2"))

	// earliest force entry wins even though it was appended last
	e, err := repo.FirstUnplayedForce(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "urgent1", e.URL)
	assert.True(t, e.ForcePlay)

	first, err := repo.FirstUnplayed(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "a", first.URL)
}

func TestMarkPlayedClearsForceFlag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))
	require.NoError(t, repo.EnqueueForceNext(ctx, "g1", "urgent"))

	e, err := repo.FirstUnplayedForce(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, e)
	require.NoError(t, repo.MarkPlayed(ctx, e.ID))

	entries, err := repo.ListQueue(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].AlreadyPlayed)
	assert.False(t, entries[0].ForcePlay, "replay after a loop reset should use normal ordering")

	// reopening leaves the flag cleared
	require.NoError(t, repo.ResetAllUnplayed(ctx, "g1"))
	e, err = repo.FirstUnplayedForce(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	_, err := repo.Enqueue(ctx, "g1", []string{"a", "b", "c"})
	require.NoError(t, err)

	e, err := repo.FirstUnplayed(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, repo.MarkPlayed(ctx, e.ID))

	total, err := repo.CountTotal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	unplayed, err := repo.CountUnplayed(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, unplayed)

	left, err := repo.UnplayedEntries(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].URL)
}

func TestResetAndClear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))

	_, err := repo.Enqueue(ctx, "g1", []string{"a", "b"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		e, err := repo.FirstUnplayed(ctx, "g1")
		require.NoError(t, err)
		require.NoError(t, repo.MarkPlayed(ctx, e.ID))
	}

	e, err := repo.FirstUnplayed(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, repo.ResetAllUnplayed(ctx, "g1"))
	n, err := repo.CountUnplayed(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.ClearQueue(ctx, "g1"))
	n, err = repo.CountTotal(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueuesAreIsolatedPerGuild(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGuild(ctx, "g1"))
	require.NoError(t, repo.CreateGuild(ctx, "g2"))

	_, err := repo.Enqueue(ctx, "g1", []string{"a"})
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, "g2", []string{"x", "y"})
	require.NoError(t, err)

	require.NoError(t, repo.ClearQueue(ctx, "g1"))

	n, err := repo.CountTotal(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
