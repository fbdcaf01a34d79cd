package player

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/pianonics/pianobot/internal/repository"
)

// Selector picks the next track to dispatch for a guild and mutates the
// queue store accordingly. The play loop is the only caller per guild; the
// busy gate in the session manager guarantees that.
type Selector struct {
	repo *repository.Repo

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(repo *repository.Repo) *Selector {
	return &Selector{
		repo: repo,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSelectorWithSource injects a seeded random source for deterministic
// shuffle selection.
func NewSelectorWithSource(repo *repository.Repo, src rand.Source) *Selector {
	return &Selector{repo: repo, rng: rand.New(src)}
}

// GetNext returns the next track URL for the guild, or ok=false when the
// queue is exhausted. Selection order: earliest unplayed force-play entry,
// then random-among-unplayed when shuffling, then earliest unplayed. On
// exhaustion a looping queue is reset to unplayed and selection retried
// once; a non-looping queue is cleared.
func (s *Selector) GetNext(ctx context.Context, guild string) (string, bool, error) {
	set, err := s.repo.GetGuildSettings(ctx, guild)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	url, ok, err := s.pick(ctx, guild, set.ShuffleQueue)
	if err != nil || ok {
		return url, ok, err
	}

	if set.LoopQueue {
		if err := s.repo.ResetAllUnplayed(ctx, guild); err != nil {
			return "", false, err
		}
		// one retry; an empty queue stays empty after the reset
		return s.pick(ctx, guild, set.ShuffleQueue)
	}

	if err := s.repo.ClearQueue(ctx, guild); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func (s *Selector) pick(ctx context.Context, guild string, shuffle bool) (string, bool, error) {
	entry, err := s.repo.FirstUnplayedForce(ctx, guild)
	if err != nil {
		return "", false, err
	}

	if entry == nil && shuffle {
		entries, err := s.repo.UnplayedEntries(ctx, guild)
		if err != nil {
			return "", false, err
		}
		if len(entries) > 0 {
			s.mu.Lock()
			picked := entries[s.rng.Intn(len(entries))]
			s.mu.Unlock()
			entry = &picked
		}
	}

	if entry == nil {
		entry, err = s.repo.FirstUnplayed(ctx, guild)
		if err != nil {
			return "", false, err
		}
	}

	if entry == nil {
		return "", false, nil
	}
	if err := s.repo.MarkPlayed(ctx, entry.ID); err != nil {
		return "", false, err
	}
	return entry.URL, true, nil
}
