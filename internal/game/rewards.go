package game

import (
	"context"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/store"
)

const (
	// Base XP: success gives decent XP, failure gives small XP so play
	// always progresses. Poro-specific bonus is added on top of both.
	SuccessBaseXP = 25
	FailureBaseXP = 5
)

// XPReward returns the XP granted for one catch attempt.
func XPReward(success bool, xpBonus int) int {
	base := FailureBaseXP
	if success {
		base = SuccessBaseXP
	}
	return base + xpBonus
}

// XPNeededForLevel is the XP required to advance past the given level.
func XPNeededForLevel(level int) int {
	return 100 + (level-1)*50
}

// AdvanceLevel consumes residual XP into level-ups. It loops rather than
// single-stepping so a large grant can jump several levels at once.
func AdvanceLevel(xp, level int) (newXP, newLevel int, leveledUp bool) {
	for xp >= XPNeededForLevel(level) {
		xp -= XPNeededForLevel(level)
		level++
		leveledUp = true
	}
	return xp, level, leveledUp
}

// Gold ranges by rarity tier.
func goldRange(t poro.Tier) (int, int) {
	switch t {
	case poro.TierUltraRare:
		return 17, 50
	case poro.TierRare:
		return 8, 16
	default:
		return 1, 7
	}
}

// Outcome is the applied result of one claim, success or failure.
type Outcome struct {
	XPGained   int
	Level      int
	Title      string
	LeveledUp  bool
	GoldEarned int   // success only
	CatchId    int64 // success only
}

// Rewards turns claim outcomes into XP, level, title and gold deltas. A
// success is one atomic bookkeeping unit in the store.
type Rewards struct {
	st  *store.SQLiteStore
	rng *mrand.Rand
}

func NewRewards(st *store.SQLiteStore, rng *mrand.Rand) *Rewards {
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return &Rewards{st: st, rng: rng}
}

// ApplyOutcome applies xpGained to the user and, on success, grants gold,
// bumps the lifetime counter and records the catch instance + aggregate.
// The user record is created lazily with starter defaults.
func (r *Rewards) ApplyOutcome(ctx context.Context, guildId, userId int64, p poro.Poro, success bool, xpGained int, stats poro.Stats, now time.Time) (*Outcome, error) {
	user, err := r.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	newXP, newLevel, leveledUp := AdvanceLevel(user.XP+xpGained, user.Level)
	newTitle := TitleForLevel(newLevel)

	out := &Outcome{
		XPGained:  xpGained,
		Level:     newLevel,
		Title:     newTitle,
		LeveledUp: leveledUp,
	}

	if !success {
		if err := r.st.UpdateProgress(ctx, guildId, userId, newXP, newLevel, newTitle); err != nil {
			return nil, fmt.Errorf("apply failure xp: %w", err)
		}
		return out, nil
	}

	lo, hi := goldRange(p.Tier)
	out.GoldEarned = lo + r.rng.Intn(hi-lo+1)

	catchId, err := r.st.ApplyReward(ctx, store.Reward{
		GuildId:  guildId,
		UserId:   userId,
		PoroId:   p.Id,
		XP:       newXP,
		Level:    newLevel,
		Title:    newTitle,
		Gold:     out.GoldEarned,
		CaughtTs: now,
		Stats:    stats,
	})
	if err != nil {
		return nil, fmt.Errorf("apply reward: %w", err)
	}
	out.CatchId = catchId
	return out, nil
}
