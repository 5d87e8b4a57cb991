package game

import (
	"context"
	"testing"
	"time"

	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/store"
)

func TestDecayHunger(t *testing.T) {
	base := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		hunger    int
		elapsed   time.Duration
		want      int
		wantTicks int
	}{
		{"no time", 2, 0, 2, 0},
		{"under one tick", 2, HungerTick - time.Minute, 2, 0},
		{"one tick", 2, HungerTick, 3, 1},
		{"partial progress kept", 2, HungerTick + 30*time.Minute, 3, 1},
		{"several ticks", 2, 3 * HungerTick, 5, 3},
		{"caps at max", 2, 24 * time.Hour, MaxHunger, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ts := DecayHunger(tc.hunger, base, base.Add(tc.elapsed))
			if got != tc.want {
				t.Fatalf("hunger = %d, want %d", got, tc.want)
			}
			wantTs := base.Add(time.Duration(tc.wantTicks) * HungerTick)
			if !ts.Equal(wantTs) {
				t.Fatalf("timestamp = %v, want %v", ts, wantTs)
			}
		})
	}
}

func TestDecayHungerClockSkew(t *testing.T) {
	base := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	got, ts := DecayHunger(4, base, base.Add(-time.Hour))
	if got != 4 || !ts.Equal(base) {
		t.Fatalf("backwards clock changed state: (%d, %v)", got, ts)
	}
}

func insertCatch(t *testing.T, h *harness, guildId, userId int64, hunger int) *store.Catch {
	t.Helper()
	ctx := context.Background()
	if _, err := h.st.GetOrCreateUser(ctx, guildId, userId); err != nil {
		t.Fatalf("create user: %v", err)
	}
	id, err := h.st.ApplyReward(ctx, store.Reward{
		GuildId:  guildId,
		UserId:   userId,
		PoroId:   poro.PoroId(0),
		Level:    1,
		Title:    TitleForLevel(1),
		CaughtTs: h.clk.Now(),
		Stats:    poro.Stats{Size: 3, Hunger: hunger},
	})
	if err != nil {
		t.Fatalf("insert catch: %v", err)
	}
	c, err := h.st.GetCatch(ctx, id)
	if err != nil || c == nil {
		t.Fatalf("load catch: %v", err)
	}
	return c
}

func TestRefreshSettlesDecay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := insertCatch(t, h, 1, 42, 2)
	h.clk.advance(3*HungerTick + 10*time.Minute)

	c, err := h.hunger.Refresh(ctx, c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Stats.Hunger != 5 {
		t.Fatalf("hunger = %d, want 5", c.Stats.Hunger)
	}

	// The settled value is durable, not just in-memory.
	again, err := h.st.GetCatch(ctx, c.Id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Stats.Hunger != 5 {
		t.Fatalf("stored hunger = %d, want 5", again.Stats.Hunger)
	}

	// Refreshing immediately again is a no-op; the leftover 10 minutes
	// keep counting toward the next point.
	c, err = h.hunger.Refresh(ctx, c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Stats.Hunger != 5 {
		t.Fatalf("idempotent refresh moved hunger to %d", c.Stats.Hunger)
	}

	h.clk.advance(HungerTick - 10*time.Minute)
	c, err = h.hunger.Refresh(ctx, c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Stats.Hunger != 6 {
		t.Fatalf("partial progress was lost: hunger = %d, want 6", c.Stats.Hunger)
	}
}

func TestFeedRestartsDecayClock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := insertCatch(t, h, 1, 42, 8)
	h.clk.advance(30 * time.Minute)

	c, err := h.hunger.Feed(ctx, c, 5)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if c.Stats.Hunger != 3 {
		t.Fatalf("hunger after feeding = %d, want 3", c.Stats.Hunger)
	}
	if !c.HungerUpdatedTs.Equal(h.clk.Now()) {
		t.Fatalf("feeding did not restart the decay clock: %v", c.HungerUpdatedTs)
	}

	// Overfeeding floors at zero.
	c, err = h.hunger.Feed(ctx, c, 100)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if c.Stats.Hunger != 0 {
		t.Fatalf("hunger = %d, want 0", c.Stats.Hunger)
	}
}
