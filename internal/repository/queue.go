package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

func (r *Repo) guildExists(ctx context.Context, guild string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT 1 FROM guild_settings WHERE guild_id=?`, guild)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Enqueue appends urls to the guild's queue. The bulk insert is attempted
// first; if it fails the remaining entries are inserted one at a time.
// Returns how many rows made it in and the first error hit during the
// per-row phase, if any.
func (r *Repo) Enqueue(ctx context.Context, guild string, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	ok, err := r.guildExists(ctx, guild)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO queue_entries(guild_id, url, already_played, force_play) VALUES `)
	args := make([]any, 0, len(urls)*2)
	for i, u := range urls {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,0,0)")
		args = append(args, guild, u)
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err == nil {
		return len(urls), nil
	}

	// bulk failed; fall back to inserting each entry on its own
	inserted := 0
	var firstErr error
	for _, u := range urls {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO queue_entries(guild_id, url, already_played, force_play) VALUES (?,?,0,0)`,
			guild, u,
		); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	return inserted, firstErr
}

// EnqueueForceNext inserts a single entry flagged to be dispatched before
// anything else in the queue.
func (r *Repo) EnqueueForceNext(ctx context.Context, guild, url string) error {
	ok, err := r.guildExists(ctx, guild)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO queue_entries(guild_id, url, already_played, force_play) VALUES (?,?,0,1)`,
		guild, url,
	)
	return err
}

func (r *Repo) ListQueue(ctx context.Context, guild string) ([]QueueEntry, error) {
	return r.queryEntries(ctx,
		`SELECT id, guild_id, url, already_played, force_play
		 FROM queue_entries WHERE guild_id=? ORDER BY id`, guild)
}

func (r *Repo) UnplayedEntries(ctx context.Context, guild string) ([]QueueEntry, error) {
	return r.queryEntries(ctx,
		`SELECT id, guild_id, url, already_played, force_play
		 FROM queue_entries WHERE guild_id=? AND already_played=0 ORDER BY id`, guild)
}

// FirstUnplayedForce returns the earliest unplayed force-play entry, or nil.
func (r *Repo) FirstUnplayedForce(ctx context.Context, guild string) (*QueueEntry, error) {
	return r.queryOne(ctx,
		`SELECT id, guild_id, url, already_played, force_play
		 FROM queue_entries WHERE guild_id=? AND already_played=0 AND force_play=1
		 ORDER BY id LIMIT 1`, guild)
}

// FirstUnplayed returns the earliest unplayed entry by insertion order, or nil.
func (r *Repo) FirstUnplayed(ctx context.Context, guild string) (*QueueEntry, error) {
	return r.queryOne(ctx,
		`SELECT id, guild_id, url, already_played, force_play
		 FROM queue_entries WHERE guild_id=? AND already_played=0
		 ORDER BY id LIMIT 1`, guild)
}

func (r *Repo) queryOne(ctx context.Context, query, guild string) (*QueueEntry, error) {
	row := r.db.QueryRowContext(ctx, query, guild)
	var e QueueEntry
	var b1, b2 int
	if err := row.Scan(&e.ID, &e.GuildID, &e.URL, &b1, &b2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.AlreadyPlayed = b1 != 0
	e.ForcePlay = b2 != 0
	return &e, nil
}

func (r *Repo) queryEntries(ctx context.Context, query, guild string) ([]QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, guild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueueEntry
	for rows.Next() {
		var e QueueEntry
		var b1, b2 int
		if err := rows.Scan(&e.ID, &e.GuildID, &e.URL, &b1, &b2); err != nil {
			return nil, err
		}
		e.AlreadyPlayed = b1 != 0
		e.ForcePlay = b2 != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) CountTotal(ctx context.Context, guild string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM queue_entries WHERE guild_id=?`, guild)
}

func (r *Repo) CountUnplayed(ctx context.Context, guild string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM queue_entries WHERE guild_id=? AND already_played=0`, guild)
}

func (r *Repo) count(ctx context.Context, query, guild string) (int, error) {
	row := r.db.QueryRowContext(ctx, query, guild)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkPlayed flags the entry as dispatched. The force flag is cleared at the
// same time so a looped queue replays it under normal ordering.
func (r *Repo) MarkPlayed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE queue_entries SET already_played=1, force_play=0 WHERE id=?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// ResetAllUnplayed reopens every entry in the guild's queue (loop support).
func (r *Repo) ResetAllUnplayed(ctx context.Context, guild string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE queue_entries SET already_played=0 WHERE guild_id=?`, guild)
	return err
}

func (r *Repo) ClearQueue(ctx context.Context, guild string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE guild_id=?`, guild)
	return err
}
