package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knubgod/poro-hunt/internal/poro"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSpawn(guildId, messageId int64) Spawn {
	return Spawn{
		GuildId:   guildId,
		ChannelId: 100,
		MessageId: messageId,
		SpawnTs:   time.Unix(1_700_000_000, 0),
		Active:    true,
		PoroId:    poro.PoroId(1),
		Stats:     poro.Stats{Size: 3, Weight: 5, ThrowDistance: 7, Fluffiness: 9, Hunger: 2},
	}
}

func TestActiveSpawnRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sp, err := s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sp)

	require.NoError(t, s.SetActiveSpawn(ctx, testSpawn(1, 500)))

	sp, err = s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, int64(500), sp.MessageId)
	assert.Equal(t, poro.Stats{Size: 3, Weight: 5, ThrowDistance: 7, Fluffiness: 9, Hunger: 2}, sp.Stats)
	assert.True(t, sp.FirstInteractionTs.IsZero())

	// Superseding spawn reuses the row and resets first interaction.
	now := time.Unix(1_700_000_100, 0)
	armed, err := s.MarkFirstInteraction(ctx, 1, 500, now)
	require.NoError(t, err)
	assert.True(t, armed)

	require.NoError(t, s.SetActiveSpawn(ctx, testSpawn(1, 501)))
	sp, err = s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(501), sp.MessageId)
	assert.True(t, sp.FirstInteractionTs.IsZero())
}

func TestDeactivateSpawnIsCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetActiveSpawn(ctx, testSpawn(1, 500)))

	// Wrong instance id never deactivates.
	won, err := s.DeactivateSpawn(ctx, 1, 499)
	require.NoError(t, err)
	assert.False(t, won)

	won, err = s.DeactivateSpawn(ctx, 1, 500)
	require.NoError(t, err)
	assert.True(t, won)

	// Second caller on the same instance loses.
	won, err = s.DeactivateSpawn(ctx, 1, 500)
	require.NoError(t, err)
	assert.False(t, won)

	sp, err := s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sp)
}

func TestMarkFirstInteractionOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_050, 0)

	require.NoError(t, s.SetActiveSpawn(ctx, testSpawn(1, 500)))

	armed, err := s.MarkFirstInteraction(ctx, 1, 500, now)
	require.NoError(t, err)
	assert.True(t, armed)

	armed, err = s.MarkFirstInteraction(ctx, 1, 500, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, armed)

	sp, err := s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), sp.FirstInteractionTs.Unix())
}

func TestAttemptDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first, err := s.InsertAttempt(ctx, 1, 500, 42, now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.InsertAttempt(ctx, 1, 500, 42, now)
	require.NoError(t, err)
	assert.False(t, second)

	// Different user or different instance is a fresh attempt.
	ok, err := s.InsertAttempt(ctx, 1, 500, 43, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.InsertAttempt(ctx, 1, 501, 42, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoostConsumeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	ok, err := s.InsertBoost(ctx, 1, 500, 42, now)
	require.NoError(t, err)
	assert.True(t, ok)

	dup, err := s.InsertBoost(ctx, 1, 500, 42, now)
	require.NoError(t, err)
	assert.False(t, dup)

	// Boosts are scoped per user; another user can place their own.
	other, err := s.InsertBoost(ctx, 1, 500, 77, now)
	require.NoError(t, err)
	assert.True(t, other)

	had, err := s.ConsumeBoost(ctx, 1, 500, 42)
	require.NoError(t, err)
	assert.True(t, had)

	had, err = s.ConsumeBoost(ctx, 1, 500, 42)
	require.NoError(t, err)
	assert.False(t, had)
}

func TestGetOrCreateUserStarterDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 0, u.XP)
	assert.Equal(t, 20, u.Gold)
	assert.Equal(t, 3, u.Food)
	assert.Equal(t, 0, u.Berries)
	assert.Equal(t, 0, u.Traps)

	// Second call returns the same record, no reset.
	ok, err := s.BuyBerry(ctx, 1, 42, 3)
	require.NoError(t, err)
	require.True(t, ok)

	u, err = s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 17, u.Gold)
	assert.Equal(t, 1, u.Berries)
}

func TestGuardedResourceUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)

	ok, err := s.SpendBerry(ctx, 1, 42)
	require.NoError(t, err)
	assert.False(t, ok, "no berries yet")

	ok, err = s.ArmTrap(ctx, 1, 42)
	require.NoError(t, err)
	assert.False(t, ok, "no traps yet")

	ok, err = s.BuyTrap(ctx, 1, 42, 15)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.BuyTrap(ctx, 1, 42, 15)
	require.NoError(t, err)
	assert.False(t, ok, "only 5g left")

	ok, err = s.ArmTrap(ctx, 1, 42)
	require.NoError(t, err)
	require.True(t, ok)

	users, err := s.ArmedTrapUsers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, users)

	ok, err = s.ConsumeArmedTrap(ctx, 1, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ConsumeArmedTrap(ctx, 1, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimFreeFoodCooldown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	cooldown := 12 * time.Hour

	_, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)

	ok, err := s.ClaimFreeFood(ctx, 1, 42, 3, now, now.Add(-cooldown))
	require.NoError(t, err)
	assert.True(t, ok, "never claimed before")

	later := now.Add(time.Hour)
	ok, err = s.ClaimFreeFood(ctx, 1, 42, 3, later, later.Add(-cooldown))
	require.NoError(t, err)
	assert.False(t, ok, "cooldown not lapsed")

	after := now.Add(cooldown)
	ok, err = s.ClaimFreeFood(ctx, 1, 42, 3, after, after.Add(-cooldown))
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 9, u.Food)
}

func TestApplyRewardIsOneUnit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)

	catchId, err := s.ApplyReward(ctx, Reward{
		GuildId: 1, UserId: 42, PoroId: 2,
		XP: 30, Level: 1, Title: "Poro Curious", Gold: 9,
		CaughtTs: now,
		Stats:    poro.Stats{Size: 4, Weight: 6, ThrowDistance: 8, Fluffiness: 10, Hunger: 1},
	})
	require.NoError(t, err)
	require.Greater(t, catchId, int64(0))

	u, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 30, u.XP)
	assert.Equal(t, 29, u.Gold)
	assert.Equal(t, 1, u.PorosCaught)
	assert.Equal(t, now.Unix(), u.LastCatchTs.Unix())

	c, err := s.GetCatchOwned(ctx, catchId, 1, 42)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, poro.PoroId(2), c.PoroId)
	assert.Equal(t, 1, c.Stats.Hunger)
	assert.Equal(t, now.Unix(), c.HungerUpdatedTs.Unix())

	counts, err := s.CountByPoro(ctx, 1, 42)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)

	unique, err := s.UniquePoroCount(ctx, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, unique)

	// Aggregate upsert increments on repeat.
	_, err = s.ApplyReward(ctx, Reward{
		GuildId: 1, UserId: 42, PoroId: 2,
		XP: 60, Level: 1, Title: "Poro Curious", Gold: 3,
		CaughtTs: now.Add(time.Hour), Stats: poro.Stats{},
	})
	require.NoError(t, err)

	guildCounts, err := s.GuildPoroCounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, guildCounts, 1)
	assert.Equal(t, 2, guildCounts[0].Count)
}

func TestScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sched, err := s.GetOrCreateSchedule(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, sched.DailyTarget)
	assert.Equal(t, int64(0), sched.GameChannelId)
	assert.True(t, sched.NextSpawnTs.IsZero())

	require.NoError(t, s.SetGameChannel(ctx, 1, 777))
	require.NoError(t, s.SetDailyTarget(ctx, 1, 12))
	require.NoError(t, s.ResetScheduleDay(ctx, 1, "2026-08-28"))
	require.NoError(t, s.IncrementDailyCount(ctx, 1))
	next := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.SetNextSpawn(ctx, 1, next))

	sched, err = s.GetOrCreateSchedule(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(777), sched.GameChannelId)
	assert.Equal(t, 12, sched.DailyTarget)
	assert.Equal(t, "2026-08-28", sched.DailyDate)
	assert.Equal(t, 1, sched.DailyCount)
	assert.Equal(t, next.Unix(), sched.NextSpawnTs.Unix())
}

func TestNicknameOwnershipScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	catchId, err := s.ApplyReward(ctx, Reward{
		GuildId: 1, UserId: 42, PoroId: 0, Level: 1, CaughtTs: time.Now(),
	})
	require.NoError(t, err)

	ok, err := s.SetNickname(ctx, catchId, 1, 99, "Thief")
	require.NoError(t, err)
	assert.False(t, ok, "not the owner")

	ok, err = s.SetNickname(ctx, catchId, 1, 42, "Sir Fluffington")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := s.RecentNicknames(ctx, 1, 42, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sir Fluffington"}, names)
}

func TestResetGuildIsScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, 42)
	require.NoError(t, err)
	_, err = s.GetOrCreateUser(ctx, 2, 42)
	require.NoError(t, err)
	require.NoError(t, s.SetActiveSpawn(ctx, testSpawn(1, 500)))

	require.NoError(t, s.ResetGuild(ctx, 1))

	sp, err := s.GetActiveSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sp)

	// Other guild untouched; reset guild starts fresh.
	u, err := s.GetOrCreateUser(ctx, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, 20, u.Gold)
}
