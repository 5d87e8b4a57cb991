package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/knubgod/poro-hunt/internal/poro"
)

const catchColumns = `
	id, guild_id, user_id, poro_id, caught_ts,
	size, weight, throw_distance, fluffiness, hunger,
	nickname, hunger_updated_ts
`

func scanCatch(sc interface{ Scan(...any) error }) (*Catch, error) {
	var (
		c                    Catch
		caughtTs, updatedTs  int64
	)
	err := sc.Scan(
		&c.Id, &c.GuildId, &c.UserId, &c.PoroId, &caughtTs,
		&c.Stats.Size, &c.Stats.Weight, &c.Stats.ThrowDistance,
		&c.Stats.Fluffiness, &c.Stats.Hunger,
		&c.Nickname, &updatedTs,
	)
	if err != nil {
		return nil, err
	}
	c.CaughtTs = fromTs(caughtTs)
	c.HungerUpdatedTs = fromTs(updatedTs)
	return &c, nil
}

// GetCatch loads one catch instance, or nil when it doesn't exist.
func (s *SQLiteStore) GetCatch(ctx context.Context, id int64) (*Catch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+catchColumns+` FROM user_catches WHERE id = ?
	`, id)
	c, err := scanCatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// GetCatchOwned loads a catch only if it belongs to (guild, user).
func (s *SQLiteStore) GetCatchOwned(ctx context.Context, id, guildId, userId int64) (*Catch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+catchColumns+` FROM user_catches
		WHERE id = ? AND guild_id = ? AND user_id = ?
	`, id, guildId, userId)
	c, err := scanCatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListCatches returns a user's most recent catches.
func (s *SQLiteStore) ListCatches(ctx context.Context, guildId, userId int64, limit int) ([]Catch, error) {
	return s.queryCatches(ctx, `
		SELECT `+catchColumns+` FROM user_catches
		WHERE guild_id = ? AND user_id = ?
		ORDER BY caught_ts DESC, id DESC
		LIMIT ?
	`, guildId, userId, limit)
}

// ListHungriest returns a user's catches ordered by stored hunger. Callers
// should run decay first; the stored value can be stale.
func (s *SQLiteStore) ListHungriest(ctx context.Context, guildId, userId int64, limit int) ([]Catch, error) {
	return s.queryCatches(ctx, `
		SELECT `+catchColumns+` FROM user_catches
		WHERE guild_id = ? AND user_id = ?
		ORDER BY hunger DESC, caught_ts DESC
		LIMIT ?
	`, guildId, userId, limit)
}

func (s *SQLiteStore) queryCatches(ctx context.Context, query string, guildId, userId int64, limit int) ([]Catch, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, query, guildId, userId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Catch, 0, limit)
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCatchHunger writes a decayed or fed hunger value along with the
// timestamp it is valid for.
func (s *SQLiteStore) UpdateCatchHunger(ctx context.Context, id int64, hunger int, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_catches SET hunger = ?, hunger_updated_ts = ?
		WHERE id = ?
	`, hunger, toTs(updatedAt), id)
	return err
}

// SetNickname stores a cosmetic name for a catch, ownership-scoped.
func (s *SQLiteStore) SetNickname(ctx context.Context, id, guildId, userId int64, nickname string) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE user_catches SET nickname = ?
		WHERE id = ? AND guild_id = ? AND user_id = ?
	`, nickname, id, guildId, userId)
}

// RecentNicknames lists the latest non-empty nicknames a user gave to one
// poro species.
func (s *SQLiteStore) RecentNicknames(ctx context.Context, guildId, userId int64, poroId poro.PoroId, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT nickname FROM user_catches
		WHERE guild_id = ? AND user_id = ? AND poro_id = ? AND nickname != ''
		ORDER BY caught_ts DESC
		LIMIT ?
	`, guildId, userId, poroId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountByPoro groups a user's catches by species, most caught first.
func (s *SQLiteStore) CountByPoro(ctx context.Context, guildId, userId int64) ([]PoroCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT poro_id, COUNT(*) AS caught_count
		FROM user_catches
		WHERE guild_id = ? AND user_id = ?
		GROUP BY poro_id
		ORDER BY caught_count DESC
	`, guildId, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PoroCount
	for rows.Next() {
		var pc PoroCount
		if err := rows.Scan(&pc.PoroId, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// UniquePoroCount is the user's "dex" progress: distinct species caught.
func (s *SQLiteStore) UniquePoroCount(ctx context.Context, guildId, userId int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT poro_id) FROM user_catches
		WHERE guild_id = ? AND user_id = ?
	`, guildId, userId).Scan(&n)
	return n, err
}

// GuildPoroCounts aggregates catch counts per species across a guild, for
// the weekly showcase.
func (s *SQLiteStore) GuildPoroCounts(ctx context.Context, guildId int64) ([]PoroCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT poro_id, SUM(caught_count)
		FROM user_poros
		WHERE guild_id = ?
		GROUP BY poro_id
	`, guildId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PoroCount
	for rows.Next() {
		var pc PoroCount
		if err := rows.Scan(&pc.PoroId, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
