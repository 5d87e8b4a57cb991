package game

import (
	"context"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/knubgod/poro-hunt/internal/store"
)

const (
	// Blackout window (local time). Spawns must not be posted inside it.
	BlackoutStartHour = 0
	BlackoutEndHour   = 6

	// Jitter past the blackout end, so rooms don't all spawn at 06:00.
	blackoutJitterMaxMinutes = 30

	minSpawnGap = 10 * time.Minute
	maxSpawnGap = 6 * time.Hour

	DefaultDailyTarget = 6
	MinDailyTarget     = 1
	MaxDailyTarget     = 50

	// Backoffs for skipped attempts, so scheduling never gets stuck.
	AlreadyActiveRetry = 15 * time.Minute
	NoChannelRetry     = 6 * time.Hour
)

// InBlackout reports whether t falls inside the blackout window.
func InBlackout(t time.Time) bool {
	h := t.Hour()
	return h >= BlackoutStartHour && h < BlackoutEndHour
}

func localDay(t time.Time) string {
	return t.Format("2006-01-02")
}

// Scheduler decides, per guild, when the next spawn attempt should fire.
// next_spawn_ts is persisted, never reconstructed from in-memory timers,
// so a restart never resets the day's pacing.
type Scheduler struct {
	st  *store.SQLiteStore
	clk Clock
	rng *mrand.Rand
}

func NewScheduler(st *store.SQLiteStore, clk Clock, rng *mrand.Rand) *Scheduler {
	if clk == nil {
		clk = RealClock{}
	}
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{st: st, clk: clk, rng: rng}
}

// NextAllowedSpawn is the first permissible post-blackout instant after t,
// with jitter: today at the blackout end if t is before it, otherwise
// tomorrow.
func NextAllowedSpawn(t time.Time, rng *mrand.Rand) time.Time {
	addDays := 0
	if t.Hour() >= BlackoutEndHour {
		addDays = 1
	}
	return morningOf(t, addDays, rng)
}

func morningOf(t time.Time, addDays int, rng *mrand.Rand) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m, d+addDays, BlackoutEndHour, 0, 0, 0, t.Location())
	return target.Add(time.Duration(rng.Intn(blackoutJitterMaxMinutes+1)) * time.Minute)
}

// ShouldSpawnNow reports whether the guild's persisted trigger has come
// due. A guild with no trigger yet gets one scheduled and reports false.
func (s *Scheduler) ShouldSpawnNow(ctx context.Context, guildId int64) (bool, error) {
	sched, err := s.st.GetOrCreateSchedule(ctx, guildId)
	if err != nil {
		return false, fmt.Errorf("load schedule: %w", err)
	}
	if sched.NextSpawnTs.IsZero() {
		if _, err := s.ComputeNextSpawn(ctx, guildId); err != nil {
			return false, err
		}
		return false, nil
	}
	return !s.clk.Now().Before(sched.NextSpawnTs), nil
}

// ComputeNextSpawn draws the next trigger time and persists it:
//   - rolls the daily counter over on a new local calendar day;
//   - quota met -> first permissible instant tomorrow morning;
//   - inside blackout -> first permissible instant after it;
//   - otherwise a uniform draw from [10m, min(6h, 2*average-gap)] past
//     now, pushed out of blackout if it lands there.
func (s *Scheduler) ComputeNextSpawn(ctx context.Context, guildId int64) (time.Time, error) {
	now := s.clk.Now()

	sched, err := s.rolloverDay(ctx, guildId, now)
	if err != nil {
		return time.Time{}, err
	}

	target := sched.DailyTarget
	if target < MinDailyTarget {
		target = DefaultDailyTarget
	}

	if sched.DailyCount >= target {
		next := morningOf(now, 1, s.rng)
		return next, s.setNext(ctx, guildId, next)
	}

	if InBlackout(now) {
		next := NextAllowedSpawn(now, s.rng)
		return next, s.setNext(ctx, guildId, next)
	}

	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 30, 0, now.Location())

	remainingSpawns := target - sched.DailyCount
	if remainingSpawns < 1 {
		remainingSpawns = 1
	}
	remaining := endOfDay.Sub(now)
	if remaining < time.Minute {
		remaining = time.Minute
	}

	avg := remaining / time.Duration(remainingSpawns)
	if avg < 30*time.Minute {
		avg = 30 * time.Minute
	}

	hi := 2 * avg
	if hi > maxSpawnGap {
		hi = maxSpawnGap
	}
	if hi < minSpawnGap {
		hi = minSpawnGap
	}

	gap := minSpawnGap
	if hi > minSpawnGap {
		gap += time.Duration(s.rng.Int63n(int64(hi - minSpawnGap + 1)))
	}

	next := now.Add(gap)
	if InBlackout(next) {
		next = NextAllowedSpawn(next, s.rng)
	}
	return next, s.setNext(ctx, guildId, next)
}

// MarkSpawnHappened counts a completed spawn against today's quota and
// schedules the next trigger.
func (s *Scheduler) MarkSpawnHappened(ctx context.Context, guildId int64) error {
	now := s.clk.Now()
	if _, err := s.rolloverDay(ctx, guildId, now); err != nil {
		return err
	}
	if err := s.st.IncrementDailyCount(ctx, guildId); err != nil {
		return fmt.Errorf("count spawn: %w", err)
	}
	_, err := s.ComputeNextSpawn(ctx, guildId)
	return err
}

// Defer pushes the next trigger out by d without touching the quota, for
// skipped attempts (already active, no channel, transient failures).
func (s *Scheduler) Defer(ctx context.Context, guildId int64, d time.Duration) error {
	return s.setNext(ctx, guildId, s.clk.Now().Add(d))
}

// DeferUntil pushes the next trigger to an absolute instant, used with the
// NextAllowed of a blackout refusal.
func (s *Scheduler) DeferUntil(ctx context.Context, guildId int64, at time.Time) error {
	return s.setNext(ctx, guildId, at)
}

// rolloverDay resets the daily counter exactly once when the stored day
// differs from the local calendar day of now.
func (s *Scheduler) rolloverDay(ctx context.Context, guildId int64, now time.Time) (*store.Schedule, error) {
	sched, err := s.st.GetOrCreateSchedule(ctx, guildId)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	today := localDay(now)
	if sched.DailyDate != today {
		if err := s.st.ResetScheduleDay(ctx, guildId, today); err != nil {
			return nil, fmt.Errorf("reset schedule day: %w", err)
		}
		sched.DailyDate = today
		sched.DailyCount = 0
	}
	return sched, nil
}

func (s *Scheduler) setNext(ctx context.Context, guildId int64, at time.Time) error {
	if err := s.st.SetNextSpawn(ctx, guildId, at); err != nil {
		return fmt.Errorf("persist next spawn: %w", err)
	}
	return nil
}
