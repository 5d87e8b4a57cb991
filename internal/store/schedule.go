package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetOrCreateSchedule loads the per-guild schedule/config row, creating it
// with defaults on first access.
func (s *SQLiteStore) GetOrCreateSchedule(ctx context.Context, guildId int64) (*Schedule, error) {
	sched, err := s.getSchedule(ctx, guildId)
	if err == nil {
		return sched, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO guild_config (guild_id) VALUES (?)
	`, guildId); err != nil {
		return nil, err
	}
	return s.getSchedule(ctx, guildId)
}

func (s *SQLiteStore) getSchedule(ctx context.Context, guildId int64) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, game_channel_id, showcase_channel_id,
		       next_spawn_ts, daily_spawn_target, daily_spawn_count,
		       daily_spawn_date, last_showcase_ts
		FROM guild_config WHERE guild_id = ?
	`, guildId)

	var (
		sched                   Schedule
		nextTs, lastShowcaseTs  int64
	)
	err := row.Scan(
		&sched.GuildId, &sched.GameChannelId, &sched.ShowcaseChannelId,
		&nextTs, &sched.DailyTarget, &sched.DailyCount,
		&sched.DailyDate, &lastShowcaseTs,
	)
	if err != nil {
		return nil, err
	}
	sched.NextSpawnTs = fromTs(nextTs)
	sched.LastShowcaseTs = fromTs(lastShowcaseTs)
	return &sched, nil
}

func (s *SQLiteStore) SetNextSpawn(ctx context.Context, guildId int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE guild_config SET next_spawn_ts = ? WHERE guild_id = ?
	`, toTs(at), guildId)
	return err
}

// ResetScheduleDay rolls the daily counter over to a new calendar day.
func (s *SQLiteStore) ResetScheduleDay(ctx context.Context, guildId int64, day string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE guild_config SET daily_spawn_date = ?, daily_spawn_count = 0
		WHERE guild_id = ?
	`, day, guildId)
	return err
}

func (s *SQLiteStore) IncrementDailyCount(ctx context.Context, guildId int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE guild_config SET daily_spawn_count = daily_spawn_count + 1
		WHERE guild_id = ?
	`, guildId)
	return err
}

func (s *SQLiteStore) SetDailyTarget(ctx context.Context, guildId int64, target int) error {
	return s.upsertConfig(ctx, guildId, `daily_spawn_target`, target)
}

func (s *SQLiteStore) SetGameChannel(ctx context.Context, guildId, channelId int64) error {
	return s.upsertConfig(ctx, guildId, `game_channel_id`, channelId)
}

func (s *SQLiteStore) SetShowcaseChannel(ctx context.Context, guildId, channelId int64) error {
	return s.upsertConfig(ctx, guildId, `showcase_channel_id`, channelId)
}

func (s *SQLiteStore) SetLastShowcase(ctx context.Context, guildId int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE guild_config SET last_showcase_ts = ? WHERE guild_id = ?
	`, toTs(at), guildId)
	return err
}

// upsertConfig sets one column, creating the config row if needed. The
// column name is always a compile-time constant from this file.
func (s *SQLiteStore) upsertConfig(ctx context.Context, guildId int64, column string, value any) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_config (guild_id, `+column+`)
		VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET `+column+` = excluded.`+column+`
	`, guildId, value)
	return err
}
