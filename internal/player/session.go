package player

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/audio"
)

var (
	// ErrNotInVoice means the requesting user has no voice channel to join.
	ErrNotInVoice = errors.New("user is not in a voice channel")
	// ErrAlreadyConnected means the voice layer reports a live connection
	// in a different channel for the guild.
	ErrAlreadyConnected = errors.New("already connected to a different voice channel")
	// ErrNoSession means no active session exists for the guild.
	ErrNoSession = errors.New("no active session for guild")
)

// Session is the in-memory record of one guild's voice connection. The busy
// flag is the mutual-exclusion gate for the play loop: only the caller that
// wins the false->true transition runs it.
type Session struct {
	GuildID   string
	ChannelID string
	Conn      *discordgo.VoiceConnection

	busy atomic.Bool
}

func (s *Session) TryAcquire() bool { return s.busy.CompareAndSwap(false, true) }
func (s *Session) Release()         { s.busy.Store(false) }
func (s *Session) Busy() bool       { return s.busy.Load() }

// VoiceJoiner is the external voice layer: it owns connection setup and
// teardown of the underlying gateway resource.
type VoiceJoiner interface {
	Join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error)
	Leave(vc *discordgo.VoiceConnection)
}

// SourceResolver turns a queued track URL into a direct media URL the
// streaming layer can open.
type SourceResolver interface {
	StreamURL(ctx context.Context, url string) (string, error)
}

// TrackStreamer delivers one track's audio to the voice connection,
// blocking until playback completes, fails, or is stopped.
type TrackStreamer interface {
	Play(ctx context.Context, vc *discordgo.VoiceConnection, guildID, mediaURL string, cfg audio.EffectiveConfig) error
	// Stop unblocks an in-flight Play for the guild. Reports whether
	// anything was playing.
	Stop(guildID string) bool
}
