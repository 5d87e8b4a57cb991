package game

import (
	"context"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/knubgod/poro-hunt/internal/store"
)

// Shop pricing and feeding economics.
const (
	TrapCost    = 15
	BerryCost   = 3
	FoodBagCost = 5
	FoodBagUses = 3

	FreeFoodCooldown = 12 * time.Hour

	// One feeding restores a random amount of hunger in this range.
	MinFeedAmount = 3
	MaxFeedAmount = 6
)

// Items covers the shop, trap arming and feeding. Every spend is a guarded
// store update, so two clicks can never double-charge.
type Items struct {
	st     *store.SQLiteStore
	hunger *Hunger
	clk    Clock
	rng    *mrand.Rand
}

func NewItems(st *store.SQLiteStore, hunger *Hunger, clk Clock, rng *mrand.Rand) *Items {
	if clk == nil {
		clk = RealClock{}
	}
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return &Items{st: st, hunger: hunger, clk: clk, rng: rng}
}

func (i *Items) ensureUser(ctx context.Context, guildId, userId int64) error {
	_, err := i.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	return nil
}

// BuyTrap purchases one trap for gold.
func (i *Items) BuyTrap(ctx context.Context, guildId, userId int64) error {
	if err := i.ensureUser(ctx, guildId, userId); err != nil {
		return err
	}
	ok, err := i.st.BuyTrap(ctx, guildId, userId, TrapCost)
	if err != nil {
		return fmt.Errorf("buy trap: %w", err)
	}
	if !ok {
		return ErrInsufficientResource
	}
	return nil
}

// BuyBerry purchases one berry for gold.
func (i *Items) BuyBerry(ctx context.Context, guildId, userId int64) error {
	if err := i.ensureUser(ctx, guildId, userId); err != nil {
		return err
	}
	ok, err := i.st.BuyBerry(ctx, guildId, userId, BerryCost)
	if err != nil {
		return fmt.Errorf("buy berry: %w", err)
	}
	if !ok {
		return ErrInsufficientResource
	}
	return nil
}

// BuyFoodBag purchases a bag of food uses for gold.
func (i *Items) BuyFoodBag(ctx context.Context, guildId, userId int64) error {
	if err := i.ensureUser(ctx, guildId, userId); err != nil {
		return err
	}
	ok, err := i.st.BuyFoodBag(ctx, guildId, userId, FoodBagCost, FoodBagUses)
	if err != nil {
		return fmt.Errorf("buy food bag: %w", err)
	}
	if !ok {
		return ErrInsufficientResource
	}
	return nil
}

// ArmTrap moves one trap from inventory to armed. Armed charges are burned
// by the next spawns, one charge per spawn, whether or not the holder is
// around.
func (i *Items) ArmTrap(ctx context.Context, guildId, userId int64) error {
	if err := i.ensureUser(ctx, guildId, userId); err != nil {
		return err
	}
	ok, err := i.st.ArmTrap(ctx, guildId, userId)
	if err != nil {
		return fmt.Errorf("arm trap: %w", err)
	}
	if !ok {
		return ErrInsufficientResource
	}
	return nil
}

// ClaimFreeFood grants the periodic free food bag. Returns a CooldownError
// carrying the remaining wait when claimed too early.
func (i *Items) ClaimFreeFood(ctx context.Context, guildId, userId int64) error {
	user, err := i.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	now := i.clk.Now()
	ok, err := i.st.ClaimFreeFood(ctx, guildId, userId, FoodBagUses, now, now.Add(-FreeFoodCooldown))
	if err != nil {
		return fmt.Errorf("claim free food: %w", err)
	}
	if !ok {
		remaining := user.LastFreeFoodTs.Add(FreeFoodCooldown).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		return CooldownError{Remaining: remaining}
	}
	return nil
}

// FeedCatch spends one food use on an owned catch and restores a random
// amount of hunger. The spend happens first; a failed feed write would
// leave a consumed use, which is acceptable next to a double-feed.
func (i *Items) FeedCatch(ctx context.Context, guildId, userId, catchId int64) (*store.Catch, int, error) {
	c, err := i.st.GetCatchOwned(ctx, catchId, guildId, userId)
	if err != nil {
		return nil, 0, fmt.Errorf("load catch: %w", err)
	}
	if c == nil {
		return nil, 0, ErrCatchNotFound
	}

	spent, err := i.st.SpendFood(ctx, guildId, userId)
	if err != nil {
		return nil, 0, fmt.Errorf("spend food: %w", err)
	}
	if !spent {
		return nil, 0, ErrInsufficientResource
	}

	amount := MinFeedAmount + i.rng.Intn(MaxFeedAmount-MinFeedAmount+1)
	c, err = i.hunger.Feed(ctx, c, amount)
	if err != nil {
		return nil, 0, err
	}
	return c, amount, nil
}
