package audio

import (
	"testing"

	"github.com/pianonics/pianobot/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestBassGainDB(t *testing.T) {
	assert.Equal(t, -12.0, BassGainDB(0.0))
	assert.Equal(t, 0.0, BassGainDB(1.0))
	assert.Equal(t, 12.0, BassGainDB(2.0))
	assert.InDelta(t, 6.0, BassGainDB(1.5), 1e-9)
}

func TestFilterChain(t *testing.T) {
	cfg := EffectiveConfig{Volume: 1.0, BassGainDB: -12.0}
	assert.Equal(t,
		"loudnorm=I=-25:TP=-1.5:LRA=11,equalizer=f=100:t=h:width_type=o:width=2:g=-12.0",
		cfg.FilterChain())

	cfg = EffectiveConfig{Volume: 1.0, BassGainDB: 6.0, Earrape: true}
	assert.Equal(t,
		"loudnorm=I=-25:TP=-1.5:LRA=11,equalizer=f=100:t=h:width_type=o:width=2:g=6.0,acrusher=level_in=8:level_out=8:bits=8:mode=log",
		cfg.FilterChain())
}

func TestControllerTrackLifecycle(t *testing.T) {
	c := NewController(NewLiveRegistry())
	set := &repository.GuildSettings{GuildID: "g1", Volume: 0.8, BassBoost: 1.5, EarrapeEnabled: false}

	cfg := c.StartTrack("g1", set)
	assert.Equal(t, 0.8, cfg.Volume)
	assert.InDelta(t, 6.0, cfg.BassGainDB, 1e-9)
	assert.False(t, cfg.Earrape)

	// live adjustments apply while the track runs
	v, ok := c.AdjustLiveVolume("g1", -0.3)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)
	assert.True(t, c.SetLiveEarrape("g1", true))

	eff := c.Effective("g1", set)
	assert.InDelta(t, 0.5, eff.Volume, 1e-9)
	assert.True(t, eff.Earrape)

	// after the track ends reads fall back to persisted settings
	c.EndTrack("g1")
	eff = c.Effective("g1", set)
	assert.Equal(t, 0.8, eff.Volume)
	assert.False(t, eff.Earrape)

	_, ok = c.AdjustLiveVolume("g1", 0.1)
	assert.False(t, ok)
}

func TestControllerEffectiveWithoutTrack(t *testing.T) {
	c := NewController(NewLiveRegistry())
	set := &repository.GuildSettings{GuildID: "g1", Volume: 0.4, BassBoost: 0.0, EarrapeEnabled: true}

	eff := c.Effective("g1", set)
	assert.Equal(t, 0.4, eff.Volume)
	assert.Equal(t, -12.0, eff.BassGainDB)
	assert.True(t, eff.Earrape)
}
