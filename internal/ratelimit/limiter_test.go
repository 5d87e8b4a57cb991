package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestTryCooldown(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(10*time.Second, 20*time.Second, clk)

	ok, _ := l.Try(1, 42, "menu")
	if !ok {
		t.Fatal("first try should pass")
	}

	ok, wait := l.Try(1, 42, "menu")
	if ok {
		t.Fatal("second try should be on cooldown")
	}
	if wait < 10*time.Second || wait >= 20*time.Second {
		t.Fatalf("wait %v outside [10s, 20s)", wait)
	}

	clk.now = clk.now.Add(20 * time.Second)
	if ok, _ := l.Try(1, 42, "menu"); !ok {
		t.Fatal("cooldown should have lapsed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(time.Minute, time.Minute, clk)

	if ok, _ := l.Try(1, 42, "menu"); !ok {
		t.Fatal("first key should pass")
	}
	// Different user, bucket and guild each have their own budget.
	if ok, _ := l.Try(1, 43, "menu"); !ok {
		t.Fatal("other user limited")
	}
	if ok, _ := l.Try(1, 42, "leaderboard"); !ok {
		t.Fatal("other bucket limited")
	}
	if ok, _ := l.Try(2, 42, "menu"); !ok {
		t.Fatal("other guild limited")
	}
}

func TestReset(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(time.Minute, time.Minute, clk)

	l.Try(1, 42, "menu")
	l.Reset(1, 42, "menu")
	if ok, _ := l.Try(1, 42, "menu"); !ok {
		t.Fatal("reset key still limited")
	}
}

func TestFixedCooldown(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(30*time.Second, 30*time.Second, clk)

	l.Try(1, 42, "menu")
	_, wait := l.Try(1, 42, "menu")
	if wait != 30*time.Second {
		t.Fatalf("wait %v, want 30s", wait)
	}
}
