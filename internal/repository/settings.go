package repository

import (
	"context"
	"database/sql"
	"errors"
)

// CreateGuild inserts a settings row with defaults. Creating a guild that
// already exists is treated as success.
func (r *Repo) CreateGuild(ctx context.Context, guild string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO guild_settings(guild_id, loop_queue, shuffle_queue, volume, bass_boost, earrape_enabled)
		 VALUES (?, 0, 0, ?, ?, 0)`,
		guild, DefaultVolume, DefaultBassBoost,
	)
	return err
}

func (r *Repo) GetGuildSettings(ctx context.Context, guild string) (*GuildSettings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, loop_queue, shuffle_queue, volume, bass_boost, earrape_enabled
	FROM guild_settings WHERE guild_id = ?`, guild)

	var s GuildSettings
	var b1, b2, b3 int
	if err := row.Scan(&s.GuildID, &b1, &b2, &s.Volume, &s.BassBoost, &b3); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.LoopQueue = b1 != 0
	s.ShuffleQueue = b2 != 0
	s.EarrapeEnabled = b3 != 0
	return &s, nil
}

// DeleteGuild removes the settings row; queue entries go with it via the
// foreign key cascade.
func (r *Repo) DeleteGuild(ctx context.Context, guild string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id=?`, guild)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *Repo) SetVolume(ctx context.Context, guild string, volume float64) (float64, error) {
	volume = clamp(volume, MinVolume, MaxVolume)
	res, err := r.db.ExecContext(ctx, `UPDATE guild_settings SET volume=? WHERE guild_id=?`, volume, guild)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res); err != nil {
		return 0, err
	}
	return volume, nil
}

func (r *Repo) GetVolume(ctx context.Context, guild string) (float64, error) {
	s, err := r.GetGuildSettings(ctx, guild)
	if err != nil {
		return 0, err
	}
	return s.Volume, nil
}

// AdjustVolume applies a delta to the stored volume, clamped in SQL so the
// read-modify-write cannot race another adjustment, and returns the result.
func (r *Repo) AdjustVolume(ctx context.Context, guild string, delta float64) (float64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE guild_settings SET volume = MIN(MAX(volume + ?, ?), ?) WHERE guild_id=?`,
		delta, MinVolume, MaxVolume, guild,
	)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res); err != nil {
		return 0, err
	}
	return r.GetVolume(ctx, guild)
}

func (r *Repo) SetBassBoost(ctx context.Context, guild string, level float64) (float64, error) {
	level = clamp(level, MinBassBoost, MaxBassBoost)
	res, err := r.db.ExecContext(ctx, `UPDATE guild_settings SET bass_boost=? WHERE guild_id=?`, level, guild)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res); err != nil {
		return 0, err
	}
	return level, nil
}

func (r *Repo) GetBassBoost(ctx context.Context, guild string) (float64, error) {
	s, err := r.GetGuildSettings(ctx, guild)
	if err != nil {
		return 0, err
	}
	return s.BassBoost, nil
}

func (r *Repo) AdjustBassBoost(ctx context.Context, guild string, delta float64) (float64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE guild_settings SET bass_boost = MIN(MAX(bass_boost + ?, ?), ?) WHERE guild_id=?`,
		delta, MinBassBoost, MaxBassBoost, guild,
	)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res); err != nil {
		return 0, err
	}
	return r.GetBassBoost(ctx, guild)
}

func (r *Repo) SetEarrape(ctx context.Context, guild string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE guild_settings SET earrape_enabled=? WHERE guild_id=?`, boolToInt(enabled), guild)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *Repo) GetEarrape(ctx context.Context, guild string) (bool, error) {
	s, err := r.GetGuildSettings(ctx, guild)
	if err != nil {
		return false, err
	}
	return s.EarrapeEnabled, nil
}

func (r *Repo) ToggleEarrape(ctx context.Context, guild string) (bool, error) {
	return r.toggleFlag(ctx, guild, "earrape_enabled")
}

func (r *Repo) ToggleLoop(ctx context.Context, guild string) (bool, error) {
	return r.toggleFlag(ctx, guild, "loop_queue")
}

func (r *Repo) ToggleShuffle(ctx context.Context, guild string) (bool, error) {
	return r.toggleFlag(ctx, guild, "shuffle_queue")
}

func (r *Repo) toggleFlag(ctx context.Context, guild, column string) (bool, error) {
	// column is one of our own identifiers, never user input
	res, err := r.db.ExecContext(ctx,
		`UPDATE guild_settings SET `+column+` = 1 - `+column+` WHERE guild_id=?`, guild)
	if err != nil {
		return false, err
	}
	if err := mustAffect(res); err != nil {
		return false, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+column+` FROM guild_settings WHERE guild_id=?`, guild)
	var v int
	if err := row.Scan(&v); err != nil {
		return false, err
	}
	return v != 0, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
