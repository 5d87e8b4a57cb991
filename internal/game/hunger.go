package game

import (
	"context"
	"fmt"
	"time"

	"github.com/knubgod/poro-hunt/internal/store"
)

const (
	// MaxHunger is fully starving; 0 is fully fed.
	MaxHunger = 10
	// HungerTick is how long one hunger point takes to accrue. Full decay
	// from fed to starving spans twelve hours.
	HungerTick = 72 * time.Minute
)

// DecayHunger advances hunger by the whole ticks elapsed since the last
// update. The returned timestamp moves forward only by the consumed
// ticks, so partial progress toward the next point is never lost between
// reads.
func DecayHunger(hunger int, updatedAt, now time.Time) (int, time.Time) {
	if !now.After(updatedAt) {
		return hunger, updatedAt
	}
	ticks := int(now.Sub(updatedAt) / HungerTick)
	if ticks == 0 {
		return hunger, updatedAt
	}
	hunger += ticks
	if hunger > MaxHunger {
		hunger = MaxHunger
	}
	return hunger, updatedAt.Add(time.Duration(ticks) * HungerTick)
}

// Hunger applies lazy decay to stored catches. There is no background
// sweep; state is settled whenever a catch is read or fed.
type Hunger struct {
	st  *store.SQLiteStore
	clk Clock
}

func NewHunger(st *store.SQLiteStore, clk Clock) *Hunger {
	if clk == nil {
		clk = RealClock{}
	}
	return &Hunger{st: st, clk: clk}
}

// Refresh settles decay on one catch and returns the up-to-date record.
func (h *Hunger) Refresh(ctx context.Context, c *store.Catch) (*store.Catch, error) {
	hunger, updatedAt := DecayHunger(c.Stats.Hunger, c.HungerUpdatedTs, h.clk.Now())
	if hunger == c.Stats.Hunger && updatedAt.Equal(c.HungerUpdatedTs) {
		return c, nil
	}
	if err := h.st.UpdateCatchHunger(ctx, c.Id, hunger, updatedAt); err != nil {
		return nil, fmt.Errorf("settle hunger: %w", err)
	}
	c.Stats.Hunger = hunger
	c.HungerUpdatedTs = updatedAt
	return c, nil
}

// RefreshAll settles decay across a listing in place.
func (h *Hunger) RefreshAll(ctx context.Context, catches []store.Catch) error {
	for i := range catches {
		if _, err := h.Refresh(ctx, &catches[i]); err != nil {
			return err
		}
	}
	return nil
}

// Feed settles decay, then reduces hunger by amount (floored at zero) and
// restarts the decay clock from now.
func (h *Hunger) Feed(ctx context.Context, c *store.Catch, amount int) (*store.Catch, error) {
	c, err := h.Refresh(ctx, c)
	if err != nil {
		return nil, err
	}
	hunger := c.Stats.Hunger - amount
	if hunger < 0 {
		hunger = 0
	}
	now := h.clk.Now()
	if err := h.st.UpdateCatchHunger(ctx, c.Id, hunger, now); err != nil {
		return nil, fmt.Errorf("apply feeding: %w", err)
	}
	c.Stats.Hunger = hunger
	c.HungerUpdatedTs = now
	return c, nil
}
