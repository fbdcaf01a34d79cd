package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/audio"
)

// Streamer plays one track at a time per guild: ffmpeg PCM in, Opus frames
// out to the voice connection, paced at 20ms. Volume is applied per frame
// from the live registry so adjustments are audible mid-track; bass and
// distortion are baked into the ffmpeg filter chain at spawn time.
type Streamer struct {
	reg *audio.LiveRegistry

	mu     sync.Mutex
	active map[string]*playback
}

type playback struct {
	cancel context.CancelFunc
	paused atomic.Bool
	done   chan struct{}
}

func NewStreamer(reg *audio.LiveRegistry) *Streamer {
	return &Streamer{reg: reg, active: make(map[string]*playback)}
}

// Play blocks until the track ends, fails, or Stop unblocks it. A forced
// stop returns nil: the play loop treats it the same as natural completion
// and re-queries the selector.
func (st *Streamer) Play(ctx context.Context, vc *discordgo.VoiceConnection, guildID, mediaURL string, cfg audio.EffectiveConfig) error {
	playCtx, cancel := context.WithCancel(ctx)
	pb := &playback{cancel: cancel, done: make(chan struct{})}

	st.mu.Lock()
	if old := st.active[guildID]; old != nil {
		st.mu.Unlock()
		cancel()
		close(pb.done)
		return errors.New("track already playing for guild")
	}
	st.active[guildID] = pb
	st.mu.Unlock()

	defer func() {
		st.mu.Lock()
		if st.active[guildID] == pb {
			delete(st.active, guildID)
		}
		st.mu.Unlock()
		cancel()
		close(pb.done)
	}()

	pcm, err := StartPCMStream(playCtx, mediaURL, cfg.FilterChain())
	if err != nil {
		return err
	}
	defer pcm.Close()

	enc, err := NewOpusEncoder()
	if err != nil {
		return err
	}

	if err := waitVoiceReady(playCtx, vc); err != nil {
		if playCtx.Err() != nil {
			return nil
		}
		return err
	}

	_ = vc.Speaking(true)
	defer vc.Speaking(false)

	return st.sendFrames(playCtx, vc, vc.OpusSend, guildID, pcm.Stdout(), enc, pb, cfg.Volume)
}

// speaker is the one method of the voice connection the frame loop toggles
// around pauses.
type speaker interface {
	Speaking(bool) error
}

func (st *Streamer) sendFrames(
	ctx context.Context,
	vc speaker,
	opusSend chan<- []byte,
	guildID string,
	src io.Reader,
	enc *OpusEncoder,
	pb *playback,
	defaultVolume float64,
) error {
	reader := bufio.NewReaderSize(src, 64*1024)
	raw := make([]byte, FrameBytes)
	samples := make([]int16, FrameSize*Channels)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	paused := false
	for {
		if ctx.Err() != nil {
			return nil
		}
		if pb.paused.Load() {
			if !paused {
				paused = true
				_ = vc.Speaking(false)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if paused {
			paused = false
			// the gateway drops frames sent without an active speaking state
			_ = vc.Speaking(true)
		}

		if _, err := io.ReadFull(reader, raw); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read pcm: %w", err)
		}

		vol := defaultVolume
		if v, ok := st.reg.Volume(guildID); ok {
			vol = v
		}
		for i := range samples {
			j := i * 2
			s := int16(uint16(raw[j]) | uint16(raw[j+1])<<8)
			samples[i] = scaleSample(s, vol)
		}

		pkt, err := enc.Encode(samples)
		if err != nil {
			return err
		}
		if len(pkt) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		select {
		case <-ctx.Done():
			return nil
		case opusSend <- pkt:
		case <-time.After(1 * time.Second):
			return errors.New("opus send timeout")
		}
	}
}

func scaleSample(s int16, vol float64) int16 {
	v := float64(s) * vol
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Stop cancels the guild's in-flight playback and waits briefly for the
// frame loop to wind down. Reports whether anything was playing.
func (st *Streamer) Stop(guildID string) bool {
	st.mu.Lock()
	pb := st.active[guildID]
	delete(st.active, guildID)
	st.mu.Unlock()

	if pb == nil {
		return false
	}
	pb.cancel()
	select {
	case <-pb.done:
	case <-time.After(2 * time.Second):
		slog.Warn("playback did not stop in time", "guildID", guildID)
	}
	return true
}

func (st *Streamer) Pause(guildID string) bool {
	st.mu.Lock()
	pb := st.active[guildID]
	st.mu.Unlock()
	if pb == nil {
		return false
	}
	pb.paused.Store(true)
	return true
}

func (st *Streamer) Resume(guildID string) bool {
	st.mu.Lock()
	pb := st.active[guildID]
	st.mu.Unlock()
	if pb == nil {
		return false
	}
	pb.paused.Store(false)
	return true
}

func (st *Streamer) Playing(guildID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active[guildID] != nil
}
