package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetActiveSpawn returns the active spawn for the guild, or nil when none.
func (s *SQLiteStore) GetActiveSpawn(ctx context.Context, guildId int64) (*Spawn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, channel_id, message_id, spawn_ts, active,
		       poro_id, spawn_size, spawn_weight, spawn_throw_distance,
		       spawn_fluffiness, spawn_hunger, first_interaction_ts
		FROM spawns
		WHERE guild_id = ? AND active = 1
	`, guildId)

	var (
		sp                  Spawn
		activeInt           int
		spawnTs, firstTs    int64
	)
	err := row.Scan(
		&sp.GuildId, &sp.ChannelId, &sp.MessageId, &spawnTs, &activeInt,
		&sp.PoroId, &sp.Stats.Size, &sp.Stats.Weight, &sp.Stats.ThrowDistance,
		&sp.Stats.Fluffiness, &sp.Stats.Hunger, &firstTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sp.Active = activeInt == 1
	sp.SpawnTs = fromTs(spawnTs)
	sp.FirstInteractionTs = fromTs(firstTs)
	return &sp, nil
}

// SetActiveSpawn upserts the single active-spawn row for the guild,
// overwriting any stale inactive row and zeroing first_interaction_ts.
func (s *SQLiteStore) SetActiveSpawn(ctx context.Context, sp Spawn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spawns (
			guild_id, channel_id, message_id, spawn_ts, active,
			poro_id, spawn_size, spawn_weight, spawn_throw_distance,
			spawn_fluffiness, spawn_hunger, first_interaction_ts
		)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			message_id = excluded.message_id,
			spawn_ts = excluded.spawn_ts,
			active = 1,
			poro_id = excluded.poro_id,
			spawn_size = excluded.spawn_size,
			spawn_weight = excluded.spawn_weight,
			spawn_throw_distance = excluded.spawn_throw_distance,
			spawn_fluffiness = excluded.spawn_fluffiness,
			spawn_hunger = excluded.spawn_hunger,
			first_interaction_ts = 0
	`,
		sp.GuildId, sp.ChannelId, sp.MessageId, toTs(sp.SpawnTs),
		sp.PoroId, sp.Stats.Size, sp.Stats.Weight, sp.Stats.ThrowDistance,
		sp.Stats.Fluffiness, sp.Stats.Hunger,
	)
	return err
}

// DeactivateSpawn flips active 1 -> 0 for the given spawn instance only.
// Exactly one caller can observe true for a given (guild, message) pair;
// everyone else gets false. This is the winner CAS and the timer-expiry
// guard in one statement.
func (s *SQLiteStore) DeactivateSpawn(ctx context.Context, guildId, messageId int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE spawns SET active = 0
		WHERE guild_id = ? AND message_id = ? AND active = 1
	`, guildId, messageId)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearActiveSpawn unconditionally clears the active flag (admin escape
// hatch for stuck spawns).
func (s *SQLiteStore) ClearActiveSpawn(ctx context.Context, guildId int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE spawns SET active = 0 WHERE guild_id = ?
	`, guildId)
	return err
}

// MarkFirstInteraction stamps the first-interaction time if and only if it
// is still zero for the given live instance. Returns true for the one
// caller that actually set it.
func (s *SQLiteStore) MarkFirstInteraction(ctx context.Context, guildId, messageId int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE spawns SET first_interaction_ts = ?
		WHERE guild_id = ? AND message_id = ? AND active = 1 AND first_interaction_ts = 0
	`, toTs(at), guildId, messageId)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertAttempt records that the user has used their one shot at this spawn
// instance. Returns false when an attempt already existed; the uniqueness
// constraint does the dedup, not a check-then-insert.
func (s *SQLiteStore) InsertAttempt(ctx context.Context, guildId, messageId, userId int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO spawn_attempts (guild_id, message_id, user_id, attempt_ts)
		VALUES (?, ?, ?, ?)
	`, guildId, messageId, userId, toTs(at))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertBoost records a pending berry boost for (spawn, user): the bonus
// applies to that user's own next claim. Returns false when one is already
// pending.
func (s *SQLiteStore) InsertBoost(ctx context.Context, guildId, messageId, userId int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO spawn_berries (guild_id, message_id, user_id, used_ts)
		VALUES (?, ?, ?, ?)
	`, guildId, messageId, userId, toTs(at))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConsumeBoost deletes a pending boost, returning whether one existed. The
// delete is the consume-once step: two concurrent attempts cannot both see
// true.
func (s *SQLiteStore) ConsumeBoost(ctx context.Context, guildId, messageId, userId int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM spawn_berries
		WHERE guild_id = ? AND message_id = ? AND user_id = ?
	`, guildId, messageId, userId)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertStash records an offline trap capture. The stash table is fully
// separate from user_catches and never touches the public spawn row.
func (s *SQLiteStore) InsertStash(ctx context.Context, guildId, userId int64, c Catch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trap_stash (
			guild_id, user_id, poro_id, caught_ts,
			size, weight, throw_distance, fluffiness, hunger
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		guildId, userId, c.PoroId, toTs(c.CaughtTs),
		c.Stats.Size, c.Stats.Weight, c.Stats.ThrowDistance,
		c.Stats.Fluffiness, c.Stats.Hunger,
	)
	return err
}

// CountStash returns how many offline captures a user has accumulated.
func (s *SQLiteStore) CountStash(ctx context.Context, guildId, userId int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trap_stash WHERE guild_id = ? AND user_id = ?
	`, guildId, userId).Scan(&n)
	return n, err
}
