package ui

import (
	"fmt"
	"testing"

	"github.com/pianonics/pianobot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEmpty(t *testing.T) {
	e := Queue(nil, 1, 10)
	assert.Equal(t, "The queue is empty", e.Description)
}

func TestQueuePageOutOfRange(t *testing.T) {
	entries := []repository.QueueEntry{{ID: 1, URL: "a"}}
	e := Queue(entries, 5, 10)
	assert.Equal(t, "Error", e.Title)
}

func TestQueuePaging(t *testing.T) {
	var entries []repository.QueueEntry
	for i := 0; i < 25; i++ {
		entries = append(entries, repository.QueueEntry{
			ID: int64(i + 1), URL: fmt.Sprintf("track-%02d", i+1),
		})
	}
	entries[0].AlreadyPlayed = true
	entries[1].ForcePlay = true

	e := Queue(entries, 1, 10)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "Page 1/3 • 25 tracks, 24 unplayed", e.Footer.Text)
	assert.Contains(t, e.Description, "1. ✅ track-01")
	assert.Contains(t, e.Description, "2. ⏭️ track-02")
	assert.Contains(t, e.Description, "3. ▫️ track-03")
	assert.NotContains(t, e.Description, "track-11")

	e = Queue(entries, 3, 10)
	assert.Contains(t, e.Description, "21. ▫️ track-21")
	assert.Contains(t, e.Description, "25. ▫️ track-25")
}

func TestQueueEscapesMarkdown(t *testing.T) {
	entries := []repository.QueueEntry{{ID: 1, URL: "my_track*name"}}
	e := Queue(entries, 1, 10)
	assert.Contains(t, e.Description, `my\_track\*name`)
}
