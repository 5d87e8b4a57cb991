package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Starter pack for lazily created users: enough gold to try the shop and
// enough food that feeding works from day one.
const (
	starterGold  = 20
	starterFood  = 3
	starterLevel = 1
)

func scanUser(row *sql.Row) (*User, error) {
	var (
		u                          User
		lastCatchTs, lastFreeFoodTs int64
	)
	err := row.Scan(
		&u.GuildId, &u.UserId, &u.XP, &u.Level, &u.PorosCaught, &lastCatchTs,
		&u.Title, &u.Gold, &u.Berries, &u.Traps, &u.Food, &u.TrapsArmed,
		&lastFreeFoodTs,
	)
	if err != nil {
		return nil, err
	}
	u.LastCatchTs = fromTs(lastCatchTs)
	u.LastFreeFoodTs = fromTs(lastFreeFoodTs)
	return &u, nil
}

const userColumns = `
	guild_id, user_id, xp, level, poros_caught, last_catch_ts,
	title, gold, berries, traps, food, traps_armed, last_free_food_ts
`

// GetOrCreateUser loads a user record, creating it with starter defaults on
// first access.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, guildId, userId int64) (*User, error) {
	u, err := s.getUser(ctx, guildId, userId)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// INSERT OR IGNORE keeps this race-free under concurrent first access.
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (guild_id, user_id, level, gold, food)
		VALUES (?, ?, ?, ?, ?)
	`, guildId, userId, starterLevel, starterGold, starterFood)
	if err != nil {
		return nil, err
	}
	return s.getUser(ctx, guildId, userId)
}

func (s *SQLiteStore) getUser(ctx context.Context, guildId, userId int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE guild_id = ? AND user_id = ?
	`, guildId, userId)
	return scanUser(row)
}

// UpdateProgress writes the recomputed xp/level/title triple. Used on
// failed catch attempts, where no other bookkeeping changes.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, guildId, userId int64, xp, level int, title string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET xp = ?, level = ?, title = ?
		WHERE guild_id = ? AND user_id = ?
	`, xp, level, title, guildId, userId)
	return err
}

// ApplyReward applies a full success outcome as one transaction: user
// progression + gold + lifetime counter, the per-poro aggregate upsert, and
// the catch instance row. Partial application is a correctness violation,
// hence the single tx.
func (s *SQLiteStore) ApplyReward(ctx context.Context, r Reward) (int64, error) {
	var catchId int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ts := toTs(r.CaughtTs)

		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET xp = ?, level = ?, title = ?,
			    gold = gold + ?,
			    poros_caught = poros_caught + 1,
			    last_catch_ts = ?
			WHERE guild_id = ? AND user_id = ?
		`, r.XP, r.Level, r.Title, r.Gold, ts, r.GuildId, r.UserId); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_poros (guild_id, user_id, poro_id, caught_count, first_caught_ts, last_catch_ts)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT(guild_id, user_id, poro_id) DO UPDATE SET
				caught_count = caught_count + 1,
				last_catch_ts = excluded.last_catch_ts
		`, r.GuildId, r.UserId, r.PoroId, ts, ts); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_catches (
				guild_id, user_id, poro_id, caught_ts,
				size, weight, throw_distance, fluffiness, hunger,
				hunger_updated_ts
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.GuildId, r.UserId, r.PoroId, ts,
			r.Stats.Size, r.Stats.Weight, r.Stats.ThrowDistance,
			r.Stats.Fluffiness, r.Stats.Hunger, ts,
		)
		if err != nil {
			return err
		}
		catchId, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return catchId, nil
}

// SpendBerry consumes one berry; false when the user has none.
func (s *SQLiteStore) SpendBerry(ctx context.Context, guildId, userId int64) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET berries = berries - 1
		WHERE guild_id = ? AND user_id = ? AND berries > 0
	`, guildId, userId)
}

// ArmTrap moves one trap from inventory to armed; false when none left.
func (s *SQLiteStore) ArmTrap(ctx context.Context, guildId, userId int64) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET traps = traps - 1, traps_armed = traps_armed + 1
		WHERE guild_id = ? AND user_id = ? AND traps > 0
	`, guildId, userId)
}

// ConsumeArmedTrap burns one armed trap charge; false when none armed.
func (s *SQLiteStore) ConsumeArmedTrap(ctx context.Context, guildId, userId int64) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET traps_armed = traps_armed - 1
		WHERE guild_id = ? AND user_id = ? AND traps_armed > 0
	`, guildId, userId)
}

// SpendFood consumes one food use; false when the user has none.
func (s *SQLiteStore) SpendFood(ctx context.Context, guildId, userId int64) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET food = food - 1
		WHERE guild_id = ? AND user_id = ? AND food > 0
	`, guildId, userId)
}

// BuyTrap exchanges gold for one trap; false when gold is short.
func (s *SQLiteStore) BuyTrap(ctx context.Context, guildId, userId int64, cost int) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET gold = gold - ?1, traps = traps + 1
		WHERE guild_id = ?2 AND user_id = ?3 AND gold >= ?1
	`, cost, guildId, userId)
}

// BuyBerry exchanges gold for one berry; false when gold is short.
func (s *SQLiteStore) BuyBerry(ctx context.Context, guildId, userId int64, cost int) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET gold = gold - ?1, berries = berries + 1
		WHERE guild_id = ?2 AND user_id = ?3 AND gold >= ?1
	`, cost, guildId, userId)
}

// BuyFoodBag exchanges gold for a bag of food uses; false when gold is short.
func (s *SQLiteStore) BuyFoodBag(ctx context.Context, guildId, userId int64, cost, uses int) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET gold = gold - ?1, food = food + ?2
		WHERE guild_id = ?3 AND user_id = ?4 AND gold >= ?1
	`, cost, uses, guildId, userId)
}

// ClaimFreeFood grants the periodic free food bag when the cooldown has
// lapsed; the cooldown check and the grant are one statement.
func (s *SQLiteStore) ClaimFreeFood(ctx context.Context, guildId, userId int64, uses int, now time.Time, cutoff time.Time) (bool, error) {
	return s.guardedUpdate(ctx, `
		UPDATE users SET food = food + ?, last_free_food_ts = ?
		WHERE guild_id = ? AND user_id = ? AND last_free_food_ts <= ?
	`, uses, toTs(now), guildId, userId, toTs(cutoff))
}

// ArmedTrapUsers lists users holding at least one armed trap charge.
func (s *SQLiteStore) ArmedTrapUsers(ctx context.Context, guildId int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM users
		WHERE guild_id = ? AND traps_armed > 0
	`, guildId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TopCatchers returns the guild leaderboard ordered by lifetime captures.
func (s *SQLiteStore) TopCatchers(ctx context.Context, guildId int64, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, level, poros_caught
		FROM users
		WHERE guild_id = ?
		ORDER BY poros_caught DESC, level DESC
		LIMIT ?
	`, guildId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserId, &r.Level, &r.PorosCaught); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResetGuild wipes all game state for a guild in one transaction.
func (s *SQLiteStore) ResetGuild(ctx context.Context, guildId int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{
			"spawn_attempts", "spawn_berries", "spawns",
			"user_poros", "user_catches", "trap_stash", "users",
		} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE guild_id = ?`, guildId); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) guardedUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
