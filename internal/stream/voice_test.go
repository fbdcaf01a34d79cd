package stream

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/player"
	"github.com/stretchr/testify/assert"
)

func TestJoinReportsConnectionConflict(t *testing.T) {
	s := &discordgo.Session{
		VoiceConnections: map[string]*discordgo.VoiceConnection{
			"g1": {ChannelID: "elsewhere"},
		},
	}
	g := NewVoiceGateway(s)

	_, err := g.Join(context.Background(), "g1", "ch1")
	assert.ErrorIs(t, err, player.ErrAlreadyConnected)
}
