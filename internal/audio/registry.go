package audio

import (
	"sync"

	"github.com/pianonics/pianobot/internal/repository"
)

// LiveRegistry holds the audio parameters currently applied to active
// streams, keyed by guild. Entries exist only while a track is playing and
// overlay the persisted settings, which stay the source of truth for the
// next track's defaults.
type LiveRegistry struct {
	mu      sync.Mutex
	volume  map[string]float64
	bass    map[string]float64
	earrape map[string]bool
}

func NewLiveRegistry() *LiveRegistry {
	return &LiveRegistry{
		volume:  make(map[string]float64),
		bass:    make(map[string]float64),
		earrape: make(map[string]bool),
	}
}

func (r *LiveRegistry) Register(guild string, volume, bass float64, earrape bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volume[guild] = clampVolume(volume)
	r.bass[guild] = clampBass(bass)
	r.earrape[guild] = earrape
}

func (r *LiveRegistry) Unregister(guild string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.volume, guild)
	delete(r.bass, guild)
	delete(r.earrape, guild)
}

func (r *LiveRegistry) Volume(guild string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.volume[guild]
	return v, ok
}

func (r *LiveRegistry) SetVolume(guild string, v float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.volume[guild]; !ok {
		return 0, false
	}
	v = clampVolume(v)
	r.volume[guild] = v
	return v, true
}

func (r *LiveRegistry) AdjustVolume(guild string, delta float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.volume[guild]
	if !ok {
		return 0, false
	}
	v := clampVolume(cur + delta)
	r.volume[guild] = v
	return v, true
}

func (r *LiveRegistry) BassBoost(guild string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.bass[guild]
	return v, ok
}

func (r *LiveRegistry) SetBassBoost(guild string, v float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bass[guild]; !ok {
		return 0, false
	}
	v = clampBass(v)
	r.bass[guild] = v
	return v, true
}

func (r *LiveRegistry) AdjustBassBoost(guild string, delta float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bass[guild]
	if !ok {
		return 0, false
	}
	v := clampBass(cur + delta)
	r.bass[guild] = v
	return v, true
}

func (r *LiveRegistry) Earrape(guild string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.earrape[guild]
	return v, ok
}

func (r *LiveRegistry) SetEarrape(guild string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.earrape[guild]; !ok {
		return false
	}
	r.earrape[guild] = enabled
	return true
}

func (r *LiveRegistry) ToggleEarrape(guild string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.earrape[guild]
	if !ok {
		return false, false
	}
	r.earrape[guild] = !cur
	return !cur, true
}

func clampVolume(v float64) float64 {
	if v < repository.MinVolume {
		return repository.MinVolume
	}
	if v > repository.MaxVolume {
		return repository.MaxVolume
	}
	return v
}

func clampBass(v float64) float64 {
	if v < repository.MinBassBoost {
		return repository.MinBassBoost
	}
	if v > repository.MaxBassBoost {
		return repository.MaxBassBoost
	}
	return v
}
