package audio

import (
	"fmt"

	"github.com/pianonics/pianobot/internal/repository"
)

// EffectiveConfig is the filter/gain configuration handed to the streaming
// layer when a track starts.
type EffectiveConfig struct {
	Volume     float64
	BassGainDB float64
	Earrape    bool
}

// FilterChain renders the ffmpeg audio filter string: loudness
// normalization, a low-shelf style bass equalizer at 100Hz, and the
// acrusher distortion when the earrape toggle is on.
func (c EffectiveConfig) FilterChain() string {
	chain := fmt.Sprintf(
		"loudnorm=I=-25:TP=-1.5:LRA=11,equalizer=f=100:t=h:width_type=o:width=2:g=%.1f",
		c.BassGainDB,
	)
	if c.Earrape {
		chain += ",acrusher=level_in=8:level_out=8:bits=8:mode=log"
	}
	return chain
}

// BassGainDB maps the persisted bass boost level ([0,2]) onto a symmetric
// gain range of -12dB..+12dB.
func BassGainDB(bassBoost float64) float64 {
	return (bassBoost - 1.0) * 12
}

// Controller computes effective audio parameters from persisted settings
// plus any live override, and owns the override lifecycle around a single
// track's playback.
type Controller struct {
	reg *LiveRegistry
}

func NewController(reg *LiveRegistry) *Controller {
	return &Controller{reg: reg}
}

func (c *Controller) Registry() *LiveRegistry { return c.reg }

// StartTrack registers live overrides seeded from the persisted settings and
// returns the configuration for the stream about to start.
func (c *Controller) StartTrack(guild string, s *repository.GuildSettings) EffectiveConfig {
	c.reg.Register(guild, s.Volume, s.BassBoost, s.EarrapeEnabled)
	return EffectiveConfig{
		Volume:     s.Volume,
		BassGainDB: BassGainDB(s.BassBoost),
		Earrape:    s.EarrapeEnabled,
	}
}

// Effective resolves the current configuration: live override if a track is
// streaming, persisted settings otherwise.
func (c *Controller) Effective(guild string, s *repository.GuildSettings) EffectiveConfig {
	cfg := EffectiveConfig{
		Volume:     s.Volume,
		BassGainDB: BassGainDB(s.BassBoost),
		Earrape:    s.EarrapeEnabled,
	}
	if v, ok := c.reg.Volume(guild); ok {
		cfg.Volume = v
	}
	if b, ok := c.reg.BassBoost(guild); ok {
		cfg.BassGainDB = BassGainDB(b)
	}
	if e, ok := c.reg.Earrape(guild); ok {
		cfg.Earrape = e
	}
	return cfg
}

// AdjustLiveVolume shifts the live override only. Returns ok=false when no
// track is streaming for the guild.
func (c *Controller) AdjustLiveVolume(guild string, delta float64) (float64, bool) {
	return c.reg.AdjustVolume(guild, delta)
}

func (c *Controller) SetLiveVolume(guild string, v float64) (float64, bool) {
	return c.reg.SetVolume(guild, v)
}

func (c *Controller) AdjustLiveBassBoost(guild string, delta float64) (float64, bool) {
	return c.reg.AdjustBassBoost(guild, delta)
}

func (c *Controller) SetLiveBassBoost(guild string, v float64) (float64, bool) {
	return c.reg.SetBassBoost(guild, v)
}

func (c *Controller) SetLiveEarrape(guild string, enabled bool) bool {
	return c.reg.SetEarrape(guild, enabled)
}

func (c *Controller) ToggleLiveEarrape(guild string) (bool, bool) {
	return c.reg.ToggleEarrape(guild)
}

// EndTrack drops the live overrides; reads fall back to persisted settings
// until the next track starts.
func (c *Controller) EndTrack(guild string) {
	c.reg.Unregister(guild)
}
