package game

import (
	"context"
	"io"
	mrand "math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/store"
)

const testCatalog = `[
	{
		"id": 0,
		"key": "classic",
		"name": "Classic Poro",
		"rarity": "common",
		"weight": 60,
		"baseCatch": 0.5,
		"xpBonus": 0,
		"statRanges": {
			"size": {"min": 1, "max": 10},
			"weight": {"min": 1, "max": 10},
			"throwDistance": {"min": 1, "max": 10},
			"fluffiness": {"min": 1, "max": 10},
			"hunger": {"min": 0, "max": 5}
		}
	},
	{
		"id": 1,
		"key": "golden",
		"name": "Golden Poro",
		"rarity": "ultra_rare",
		"weight": 2,
		"baseCatch": 0.2,
		"xpBonus": 40,
		"fixedStats": {"size": 10, "weight": 2, "throwDistance": 9, "fluffiness": 10, "hunger": 1}
	}
]`

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeNotifier struct {
	nextMessageId int64
	ended         []EndReason
}

func (n *fakeNotifier) PostSpawn(context.Context, int64, int64, poro.Poro, poro.Stats) (int64, error) {
	n.nextMessageId++
	return n.nextMessageId, nil
}

func (n *fakeNotifier) SpawnEnded(_ context.Context, _ store.Spawn, reason EndReason) {
	n.ended = append(n.ended, reason)
}

type harness struct {
	st       *store.SQLiteStore
	clk      *fakeClock
	notifier *fakeNotifier
	mgr      *Manager
	sched    *Scheduler
	hunger   *Hunger
	items    *Items
}

// newHarness wires the game services against a real temp-dir database, a
// fixed clock (Tuesday 10:00, outside blackout) and suppressed timers.
func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	reg, err := poro.ParseRegistry([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	rng := mrand.New(mrand.NewSource(7))
	clk := &fakeClock{now: time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{}

	log := logrus.New()
	log.SetOutput(io.Discard)

	mgr := NewManager(st, reg, poro.NewPicker(reg, rng), NewRewards(st, rng), notifier, clk, rng, log)
	mgr.after = func(time.Duration, func()) {}

	hunger := NewHunger(st, clk)

	return &harness{
		st:       st,
		clk:      clk,
		notifier: notifier,
		mgr:      mgr,
		sched:    NewScheduler(st, clk, rng),
		hunger:   hunger,
		items:    NewItems(st, hunger, clk, rng),
	}
}

// spawnNow configures the guild channel and posts a spawn, failing the test
// on any refusal.
func (h *harness) spawnNow(t *testing.T, guildId int64) *SpawnResult {
	t.Helper()
	ctx := context.Background()
	if err := h.st.SetGameChannel(ctx, guildId, 100); err != nil {
		t.Fatalf("set channel: %v", err)
	}
	res, err := h.mgr.AttemptSpawn(ctx, guildId)
	if err != nil {
		t.Fatalf("attempt spawn: %v", err)
	}
	return res
}
