package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/pianonics/pianobot/internal/config"
	"github.com/pianonics/pianobot/internal/spotify"
	"github.com/ppalone/ytsearch"
)

// ResolutionError carries a user-presentable reason for a failed lookup so
// the command layer can show something better than a generic failure.
type ResolutionError struct {
	Query  string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Query, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Query, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver turns user queries into playable track URLs (enqueue time) and
// track URLs into direct media URLs (play time).
type Resolver struct {
	cfg *config.Config
	sp  *spotify.Client
	yt  *ytsearch.Client

	installOnce sync.Once
}

func New(cfg *config.Config) *Resolver {
	r := &Resolver{cfg: cfg, yt: ytsearch.NewClient(nil)}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		sp, err := spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		if err != nil {
			slog.Warn("spotify client init failed", "err", err)
		} else {
			r.sp = sp
		}
	}
	return r
}

// Resolve expands a query into one or more playable URLs: spotify links
// become searches per track, plain URLs are expanded through yt-dlp
// (playlists become many entries, capped), and free text becomes the top
// search hit.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ResolutionError{Query: query, Reason: "empty query"}
	}

	if spotify.IsSpotifyURL(query) {
		return r.resolveSpotify(ctx, query)
	}
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return r.resolveURL(ctx, query)
	}
	url, err := r.searchOne(ctx, query)
	if err != nil {
		return nil, err
	}
	return []string{url}, nil
}

func (r *Resolver) resolveSpotify(ctx context.Context, query string) ([]string, error) {
	if r.sp == nil {
		return nil, &ResolutionError{Query: query, Reason: "spotify support is not configured"}
	}
	typ, id, err := spotify.ParseID(query)
	if err != nil {
		return nil, &ResolutionError{Query: query, Reason: "unrecognized spotify link", Err: err}
	}

	var tracks []spotify.Track
	switch typ {
	case "track":
		t, err := r.sp.GetTrack(ctx, id)
		if err != nil {
			return nil, &ResolutionError{Query: query, Reason: "spotify track lookup failed", Err: err}
		}
		tracks = []spotify.Track{t}
	case "album":
		tracks, err = r.sp.GetAlbum(ctx, id, r.cfg.PlaylistLimit)
	case "playlist":
		tracks, err = r.sp.GetPlaylist(ctx, id, r.cfg.PlaylistLimit)
	}
	if err != nil {
		return nil, &ResolutionError{Query: query, Reason: "spotify lookup failed", Err: err}
	}
	if len(tracks) == 0 {
		return nil, &ResolutionError{Query: query, Reason: "nothing found on spotify"}
	}

	// best-effort per track; a playlist with a few misses still plays
	var urls []string
	for _, t := range tracks {
		url, err := r.searchOne(ctx, t.Query())
		if err != nil {
			slog.Warn("no match for spotify track", "track", t.Query(), "err", err)
			continue
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return nil, &ResolutionError{Query: query, Reason: "no playable matches for spotify tracks"}
	}
	return urls, nil
}

func (r *Resolver) resolveURL(ctx context.Context, query string) ([]string, error) {
	info, err := r.getInfo(ctx, query, true)
	if err != nil {
		return nil, &ResolutionError{Query: query, Reason: "could not read media information", Err: err}
	}

	if len(info.Entries) > 0 {
		urls := make([]string, 0, len(info.Entries))
		for _, e := range info.Entries {
			if r.cfg.PlaylistLimit > 0 && len(urls) >= r.cfg.PlaylistLimit {
				break
			}
			if u := entryURL(e); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			return nil, &ResolutionError{Query: query, Reason: "playlist contains no playable entries"}
		}
		return urls, nil
	}
	return []string{query}, nil
}

func (r *Resolver) searchOne(ctx context.Context, query string) (string, error) {
	res, err := r.yt.Search(ctx, query)
	if err != nil {
		return "", &ResolutionError{Query: query, Reason: "search failed", Err: err}
	}
	if len(res.Results) == 0 {
		return "", &ResolutionError{Query: query, Reason: "no results found"}
	}
	return "https://www.youtube.com/watch?v=" + res.Results[0].VideoID, nil
}

// StreamURL resolves a queued track URL to the direct media URL handed to
// ffmpeg.
func (r *Resolver) StreamURL(ctx context.Context, url string) (string, error) {
	info, err := r.getInfo(ctx, url, false)
	if err != nil {
		return "", &ResolutionError{Query: url, Reason: "could not extract a stream", Err: err}
	}
	if u := mediaURL(info); u != "" {
		return u, nil
	}
	return "", &ResolutionError{Query: url, Reason: "no usable media URL"}
}

type extractedEntry struct {
	id         string
	webpageURL string
	url        string
}

type extractedInfo struct {
	Entries []extractedEntry
	url     string
	formats []string
}

func (r *Resolver) getInfo(ctx context.Context, url string, flat bool) (*extractedInfo, error) {
	r.installOnce.Do(func() {
		ytdlp.MustInstall(ctx, nil)
	})

	cmd := ytdlp.New().
		Format("ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best").
		NoCheckCertificates().
		DumpJSON()
	if flat {
		cmd = cmd.FlatPlaylist()
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("parse yt-dlp json: no info returned")
	}
	ext := infos[0]

	out := &extractedInfo{}
	for _, e := range ext.Entries {
		if e == nil {
			continue
		}
		out.Entries = append(out.Entries, extractedEntry{
			id:         e.ID,
			webpageURL: sv(e.WebpageURL),
			url:        sv(e.URL),
		})
	}
	out.url = sv(ext.URL)
	for _, f := range ext.RequestedFormats {
		if f != nil {
			out.formats = append(out.formats, f.URL)
		}
	}
	for _, f := range ext.Formats {
		if f != nil {
			out.formats = append(out.formats, f.URL)
		}
	}
	return out, nil
}

func sv(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func entryURL(e extractedEntry) string {
	if e.webpageURL != "" {
		return e.webpageURL
	}
	if strings.HasPrefix(e.url, "http") {
		return e.url
	}
	if e.id != "" {
		return "https://www.youtube.com/watch?v=" + e.id
	}
	return ""
}

// mediaURL prefers the top-level URL, then any format with an http URL.
func mediaURL(info *extractedInfo) string {
	if strings.HasPrefix(info.url, "http") {
		return info.url
	}
	for _, u := range info.formats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return ""
}
