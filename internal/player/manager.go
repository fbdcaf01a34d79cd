package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pianonics/pianobot/internal/audio"
	"github.com/pianonics/pianobot/internal/repository"
)

// trackSelector picks the next queue entry for a guild, mutating the queue
// store as it goes.
type trackSelector interface {
	GetNext(ctx context.Context, guildID string) (string, bool, error)
}

// Manager owns the guild -> session mapping and drives each guild's play
// loop. Sessions are created on the first enqueue and destroyed when the
// selector reports an exhausted queue or a leave command tears them down.
type Manager struct {
	repo     *repository.Repo
	selector trackSelector
	params   *audio.Controller
	resolver SourceResolver
	streamer TrackStreamer
	joiner   VoiceJoiner

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(
	repo *repository.Repo,
	selector trackSelector,
	params *audio.Controller,
	resolver SourceResolver,
	streamer TrackStreamer,
	joiner VoiceJoiner,
) *Manager {
	return &Manager{
		repo:     repo,
		selector: selector,
		params:   params,
		resolver: resolver,
		streamer: streamer,
		joiner:   joiner,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Get(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// Ensure returns the guild's session, connecting to voice and creating one
// if none exists. channelID is the requesting user's voice channel; empty
// means the user is not in voice.
func (m *Manager) Ensure(ctx context.Context, guildID, channelID string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[guildID]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	if channelID == "" {
		return nil, ErrNotInVoice
	}

	vc, err := m.joiner.Join(ctx, guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("voice connect: %w", err)
	}

	sess := &Session{GuildID: guildID, ChannelID: channelID, Conn: vc}

	m.mu.Lock()
	if cur, ok := m.sessions[guildID]; ok {
		// lost the race to a concurrent Ensure; keep the existing session
		m.mu.Unlock()
		m.joiner.Leave(vc)
		return cur, nil
	}
	m.sessions[guildID] = sess
	m.mu.Unlock()

	return sess, nil
}

// PlayLoop runs the guild's play loop until the queue is exhausted, then
// tears the session down. A second call while the loop is running is a
// no-op; the caller that set the busy flag owns the loop.
func (m *Manager) PlayLoop(ctx context.Context, guildID string) {
	sess := m.Get(guildID)
	if sess == nil {
		return
	}
	if !sess.TryAcquire() {
		return
	}
	defer sess.Release()

	for {
		if ctx.Err() != nil {
			return
		}
		// a teardown mid-track removes the session; stop instead of
		// consuming more of a queue someone else now owns
		if m.Get(guildID) != sess {
			return
		}

		url, ok, err := m.selector.GetNext(ctx, guildID)
		if err != nil {
			slog.Error("next track selection failed", "guildID", guildID, "err", err)
			break
		}
		if !ok {
			break
		}

		// a teardown may have landed while GetNext ran
		if m.Get(guildID) != sess {
			return
		}

		if err := m.playOne(ctx, sess, url); err != nil {
			slog.Warn("track playback failed, skipping", "guildID", guildID, "url", url, "err", err)
			continue
		}
	}

	m.teardown(context.WithoutCancel(ctx), guildID, sess)
}

func (m *Manager) playOne(ctx context.Context, sess *Session, url string) error {
	mediaURL, err := m.resolver.StreamURL(ctx, url)
	if err != nil {
		return fmt.Errorf("resolve stream: %w", err)
	}

	set, err := m.repo.GetGuildSettings(ctx, sess.GuildID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cfg := m.params.StartTrack(sess.GuildID, set)
	defer m.params.EndTrack(sess.GuildID)

	slog.Info("playing track", "guildID", sess.GuildID, "url", url,
		"volume", cfg.Volume, "bassDb", cfg.BassGainDB, "earrape", cfg.Earrape)
	return m.streamer.Play(ctx, sess.Conn, sess.GuildID, mediaURL, cfg)
}

// Skip stops the current track's stream; the play loop wakes and asks the
// selector for the next entry.
func (m *Manager) Skip(guildID string) bool {
	if m.Get(guildID) == nil {
		return false
	}
	return m.streamer.Stop(guildID)
}

// Teardown disconnects and deletes the session and the guild's queue,
// independent of whether the play loop is mid-flight. The loop notices the
// session is gone and exits.
func (m *Manager) Teardown(ctx context.Context, guildID string) error {
	m.mu.Lock()
	sess := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	m.streamer.Stop(guildID)
	m.joiner.Leave(sess.Conn)
	if err := m.repo.ClearQueue(ctx, guildID); err != nil {
		slog.Error("clear queue on teardown", "guildID", guildID, "err", err)
	}
	return nil
}

// teardown is the loop-exit path: only removes the session if it is still
// the one the loop owned.
func (m *Manager) teardown(ctx context.Context, guildID string, sess *Session) {
	m.mu.Lock()
	if m.sessions[guildID] != sess {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, guildID)
	m.mu.Unlock()

	m.joiner.Leave(sess.Conn)
	if err := m.repo.ClearQueue(ctx, guildID); err != nil {
		slog.Error("clear queue on loop exit", "guildID", guildID, "err", err)
	}
	slog.Info("session ended, queue exhausted", "guildID", guildID)
}
