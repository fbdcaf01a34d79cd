package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Track is the name/artist pair used to search for a playable equivalent.
type Track struct {
	Name   string
	Artist string
}

func (t Track) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) (*Client, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &Client{raw: spotify.New(httpClient, spotify.WithRetry(true))}, nil
}

// ParseID recognizes open.spotify.com URLs and spotify: URIs for tracks,
// albums and playlists.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return "", "", fmt.Errorf("invalid spotify URI")
		}
		switch parts[1] {
		case "album", "playlist", "track":
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("unsupported spotify type %q", parts[1])
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid spotify URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("unsupported spotify type %q", parts[0])
}

// IsSpotifyURL reports whether raw looks like something ParseID can handle.
func IsSpotifyURL(raw string) bool {
	return strings.HasPrefix(raw, "spotify:") || strings.Contains(raw, "open.spotify.com/")
}

func (c *Client) GetTrack(ctx context.Context, id spotify.ID) (Track, error) {
	t, err := c.raw.GetTrack(ctx, id)
	if err != nil {
		return Track{}, err
	}
	return Track{Name: t.Name, Artist: firstArtist(t.Artists)}, nil
}

func (c *Client) GetAlbum(ctx context.Context, id spotify.ID, limit int) ([]Track, error) {
	page, err := c.raw.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []Track
	for {
		for _, t := range page.Tracks {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			out = append(out, Track{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
		if page.Next == "" {
			return out, nil
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			return out, nil
		}
	}
}

func (c *Client) GetPlaylist(ctx context.Context, id spotify.ID, limit int) ([]Track, error) {
	page, err := c.raw.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []Track
	for {
		for _, it := range page.Items {
			if it.Track.Track == nil {
				continue
			}
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			t := it.Track.Track
			out = append(out, Track{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
		if page.Next == "" {
			return out, nil
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			return out, nil
		}
	}
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
