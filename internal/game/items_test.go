package game

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShopSpendsAreGuarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const userId = 42

	// Starter gold is 20: one trap fits, a second does not.
	if err := h.items.BuyTrap(ctx, 1, userId); err != nil {
		t.Fatalf("buy trap: %v", err)
	}
	if err := h.items.BuyTrap(ctx, 1, userId); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("want ErrInsufficientResource, got %v", err)
	}

	if err := h.items.BuyBerry(ctx, 1, userId); err != nil {
		t.Fatalf("buy berry: %v", err)
	}

	// 2 gold left, food bag costs 5.
	if err := h.items.BuyFoodBag(ctx, 1, userId); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("want ErrInsufficientResource, got %v", err)
	}

	user, err := h.st.GetOrCreateUser(ctx, 1, userId)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Gold != 2 || user.Traps != 1 || user.Berries != 1 {
		t.Fatalf("inventory after shopping: %+v", user)
	}
}

func TestArmTrapNeedsInventory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.items.ArmTrap(ctx, 1, 42); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("want ErrInsufficientResource, got %v", err)
	}

	if err := h.items.BuyTrap(ctx, 1, 42); err != nil {
		t.Fatalf("buy trap: %v", err)
	}
	if err := h.items.ArmTrap(ctx, 1, 42); err != nil {
		t.Fatalf("arm trap: %v", err)
	}

	user, err := h.st.GetOrCreateUser(ctx, 1, 42)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Traps != 0 || user.TrapsArmed != 1 {
		t.Fatalf("arming moved the wrong counters: %+v", user)
	}
}

func TestFreeFoodCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const userId = 42

	if err := h.items.ClaimFreeFood(ctx, 1, userId); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	user, err := h.st.GetOrCreateUser(ctx, 1, userId)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Food != 3+FoodBagUses {
		t.Fatalf("food = %d, want starter+%d", user.Food, FoodBagUses)
	}

	err = h.items.ClaimFreeFood(ctx, 1, userId)
	var ce CooldownError
	if !errors.As(err, &ce) {
		t.Fatalf("want CooldownError, got %v", err)
	}
	if ce.Remaining <= 0 || ce.Remaining > FreeFoodCooldown {
		t.Fatalf("remaining %v outside (0, %v]", ce.Remaining, FreeFoodCooldown)
	}

	h.clk.advance(FreeFoodCooldown + time.Second)
	if err := h.items.ClaimFreeFood(ctx, 1, userId); err != nil {
		t.Fatalf("claim after cooldown: %v", err)
	}
}

func TestFeedCatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const userId = 42

	c := insertCatch(t, h, 1, userId, 9)

	fed, amount, err := h.items.FeedCatch(ctx, 1, userId, c.Id)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if amount < MinFeedAmount || amount > MaxFeedAmount {
		t.Fatalf("feed amount %d outside [%d, %d]", amount, MinFeedAmount, MaxFeedAmount)
	}
	if fed.Stats.Hunger != 9-amount {
		t.Fatalf("hunger = %d, want %d", fed.Stats.Hunger, 9-amount)
	}

	user, err := h.st.GetOrCreateUser(ctx, 1, userId)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Food != 2 {
		t.Fatalf("food = %d, want 2", user.Food)
	}
}

func TestFeedCatchOwnershipAndFood(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := insertCatch(t, h, 1, 42, 5)

	// Someone else's catch is invisible to the feeder.
	if _, _, err := h.items.FeedCatch(ctx, 1, 77, c.Id); !errors.Is(err, ErrCatchNotFound) {
		t.Fatalf("want ErrCatchNotFound, got %v", err)
	}

	// Burn the starter food, then feeding fails closed.
	for i := 0; i < 3; i++ {
		if _, _, err := h.items.FeedCatch(ctx, 1, 42, c.Id); err != nil {
			t.Fatalf("feed %d: %v", i, err)
		}
	}
	if _, _, err := h.items.FeedCatch(ctx, 1, 42, c.Id); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("want ErrInsufficientResource, got %v", err)
	}
}
