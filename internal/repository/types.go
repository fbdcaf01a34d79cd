package repository

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned by reads and updates on a guild that has no
// settings row. Callers decide whether to create the guild first.
var ErrNotFound = errors.New("guild not found")

type Repo struct {
	db *sql.DB
}

type GuildSettings struct {
	GuildID        string
	LoopQueue      bool
	ShuffleQueue   bool
	Volume         float64
	BassBoost      float64
	EarrapeEnabled bool
}

type QueueEntry struct {
	ID            int64
	GuildID       string
	URL           string
	AlreadyPlayed bool
	ForcePlay     bool
}

const (
	MinVolume    = 0.0
	MaxVolume    = 1.0
	MinBassBoost = 0.0
	MaxBassBoost = 2.0

	DefaultVolume    = 1.0
	DefaultBassBoost = 0.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
