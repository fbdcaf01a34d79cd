package spotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sp "github.com/zmb3/spotify/v2"
)

func TestParseID(t *testing.T) {
	typ, id, err := ParseID("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)
	assert.Equal(t, "track", typ)
	assert.Equal(t, sp.ID("4uLU6hMCjMI75M1A2tKUQC"), id)

	typ, id, err = ParseID("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc")
	require.NoError(t, err)
	assert.Equal(t, "playlist", typ)
	assert.Equal(t, sp.ID("37i9dQZF1DXcBWIGoYBM5M"), id)

	typ, id, err = ParseID("spotify:album:6akEvsycLGftJxYudPjmqK")
	require.NoError(t, err)
	assert.Equal(t, "album", typ)
	assert.Equal(t, sp.ID("6akEvsycLGftJxYudPjmqK"), id)

	_, _, err = ParseID("https://example.com/track/abc")
	assert.Error(t, err)

	_, _, err = ParseID("https://open.spotify.com/artist/abc")
	assert.Error(t, err)

	// URIs get the same type validation as URLs
	_, _, err = ParseID("spotify:artist:abc")
	assert.Error(t, err)

	_, _, err = ParseID("spotify:track")
	assert.Error(t, err)
}

func TestIsSpotifyURL(t *testing.T) {
	assert.True(t, IsSpotifyURL("https://open.spotify.com/track/abc"))
	assert.True(t, IsSpotifyURL("spotify:track:abc"))
	assert.False(t, IsSpotifyURL("https://www.youtube.com/watch?v=abc"))
	assert.False(t, IsSpotifyURL("lofi hip hop"))
}

func TestTrackQuery(t *testing.T) {
	assert.Equal(t, "Daft Punk - Around the World",
		Track{Name: "Around the World", Artist: "Daft Punk"}.Query())
	assert.Equal(t, "Untitled", Track{Name: "Untitled"}.Query())
}
