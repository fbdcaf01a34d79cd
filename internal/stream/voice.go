package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/player"
)

// VoiceGateway adapts discordgo voice connect/disconnect to the player's
// VoiceJoiner interface.
type VoiceGateway struct {
	s *discordgo.Session
}

func NewVoiceGateway(s *discordgo.Session) *VoiceGateway {
	return &VoiceGateway{s: s}
}

func (g *VoiceGateway) Join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error) {
	// a live connection the session manager lost track of is a conflict,
	// not something to silently move across channels
	if cur, ok := g.s.VoiceConnections[guildID]; ok && cur != nil && cur.ChannelID != channelID {
		return nil, player.ErrAlreadyConnected
	}

	vc, err := g.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}

	// Kill() panics on nil channels if the handshake never finished
	if vc.OpusSend == nil {
		vc.OpusSend = make(chan []byte, 2)
	}
	if vc.OpusRecv == nil {
		vc.OpusRecv = make(chan *discordgo.Packet, 2)
	}

	if err := waitVoiceReady(ctx, vc); err != nil {
		g.Leave(vc)
		return nil, err
	}
	return vc, nil
}

// waitVoiceReady polls for the connection handshake with a bounded number
// of short waits before giving up.
func waitVoiceReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	const (
		attempts = 50
		interval = 100 * time.Millisecond
	)
	for i := 0; i < attempts; i++ {
		if vc.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("voice connection not ready after %v", attempts*interval)
}

func (g *VoiceGateway) Leave(vc *discordgo.VoiceConnection) {
	if vc == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("voice disconnect panic recovered", "panic", r)
		}
	}()

	_ = vc.Speaking(false)
	time.Sleep(150 * time.Millisecond)

	if err := vc.Disconnect(); err != nil {
		slog.Warn("voice disconnect", "err", err)
	}
}
