package game

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/knubgod/poro-hunt/internal/poro"
)

const (
	// CatchChanceCap is the ceiling on any single attempt.
	CatchChanceCap = 0.85
	// LevelCatchBonus is the per-level additive bonus.
	LevelCatchBonus = 0.005
	// BerryCatchBonus is the one-shot bonus a tossed berry grants its
	// owner's next claim on the spawn.
	BerryCatchBonus = 0.15
)

// CatchChance computes the success probability for one attempt.
func CatchChance(baseCatch float64, level int, boosted bool) float64 {
	chance := baseCatch + float64(level)*LevelCatchBonus
	if boosted {
		chance += BerryCatchBonus
	}
	if chance > CatchChanceCap {
		chance = CatchChanceCap
	}
	return chance
}

// CatchResult reports one resolved claim.
type CatchResult struct {
	Poro    poro.Poro
	Stats   poro.Stats
	Success bool
	Chance  float64
	Boosted bool
	Outcome Outcome
}

// AttemptCatch resolves one user's claim against the identified spawn
// instance:
//   - ErrNoActiveSpawn when nothing is live in the guild;
//   - ErrStaleSpawn when the live spawn is a different instance than the
//     one the user clicked;
//   - ErrDuplicateAttempt when the user already tried this instance.
//
// Success is decided by a single roll against CatchChance; the winner is
// whoever flips the active flag first, so at most one claim per instance
// can succeed even under concurrent rolls.
func (m *Manager) AttemptCatch(ctx context.Context, guildId, messageId, userId int64) (*CatchResult, error) {
	sp, err := m.st.GetActiveSpawn(ctx, guildId)
	if err != nil {
		return nil, fmt.Errorf("load active spawn: %w", err)
	}
	if sp == nil {
		return nil, ErrNoActiveSpawn
	}
	if sp.MessageId != messageId {
		return nil, ErrStaleSpawn
	}

	inserted, err := m.st.InsertAttempt(ctx, guildId, messageId, userId, m.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	if !inserted {
		return nil, ErrDuplicateAttempt
	}

	m.MarkInteracted(ctx, guildId, messageId)

	p, ok := m.reg.GetById(sp.PoroId)
	if !ok {
		return nil, fmt.Errorf("active spawn references unknown poro %d", sp.PoroId)
	}

	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	// A pending boost belongs to this user alone and is consumed by this
	// attempt, win or lose.
	boosted, err := m.st.ConsumeBoost(ctx, guildId, messageId, userId)
	if err != nil {
		return nil, fmt.Errorf("consume boost: %w", err)
	}

	chance := CatchChance(p.BaseCatch, user.Level, boosted)
	success := m.roll() < chance

	if success {
		won, err := m.st.DeactivateSpawn(ctx, guildId, messageId)
		if err != nil {
			return nil, fmt.Errorf("claim spawn: %w", err)
		}
		if !won {
			// A concurrent claim or the expiry timer got there first.
			// This attempt resolves as a near miss, not a second win.
			success = false
		}
	}

	out, err := m.rewards.ApplyOutcome(ctx, guildId, userId, p, success, XPReward(success, p.XPBonus), sp.Stats, m.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("apply outcome: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"guild_id":   guildId,
		"message_id": messageId,
		"user_id":    userId,
		"poro":       p.Key,
		"success":    success,
		"chance":     chance,
		"boosted":    boosted,
	}).Info("catch attempt resolved")

	return &CatchResult{
		Poro:    p,
		Stats:   sp.Stats,
		Success: success,
		Chance:  chance,
		Boosted: boosted,
		Outcome: *out,
	}, nil
}

// TossBerry places a berry boost on the identified spawn instance for the
// tossing user's own next claim:
//   - ErrNoActiveSpawn / ErrStaleSpawn mirror AttemptCatch;
//   - ErrBoostAlreadyPlaced when this user already has a boost pending on
//     the instance;
//   - ErrInsufficientResource when the user has no berries.
//
// Placement is claimed before the berry is spent; a failed spend rolls the
// placement back so the user keeps a clean slate.
func (m *Manager) TossBerry(ctx context.Context, guildId, messageId, userId int64) error {
	sp, err := m.st.GetActiveSpawn(ctx, guildId)
	if err != nil {
		return fmt.Errorf("load active spawn: %w", err)
	}
	if sp == nil {
		return ErrNoActiveSpawn
	}
	if sp.MessageId != messageId {
		return ErrStaleSpawn
	}

	placed, err := m.st.InsertBoost(ctx, guildId, messageId, userId, m.clk.Now())
	if err != nil {
		return fmt.Errorf("place boost: %w", err)
	}
	if !placed {
		return ErrBoostAlreadyPlaced
	}

	spent, err := m.st.SpendBerry(ctx, guildId, userId)
	if err != nil || !spent {
		if _, rbErr := m.st.ConsumeBoost(ctx, guildId, messageId, userId); rbErr != nil {
			m.log.WithError(rbErr).WithFields(logrus.Fields{
				"guild_id": guildId, "message_id": messageId,
			}).Error("boost rollback failed")
		}
		if err != nil {
			return fmt.Errorf("spend berry: %w", err)
		}
		return ErrInsufficientResource
	}

	m.MarkInteracted(ctx, guildId, messageId)

	m.log.WithFields(logrus.Fields{
		"guild_id":   guildId,
		"message_id": messageId,
		"user_id":    userId,
	}).Info("berry tossed")

	return nil
}
