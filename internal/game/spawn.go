package game

import (
	"context"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/store"
)

const (
	// SpawnTTL is the hard expiry after posting.
	SpawnTTL = 15 * time.Minute
	// FleeAfterFirstInteraction is the shorter window once someone has
	// engaged the spawn.
	FleeAfterFirstInteraction = 5 * time.Minute
)

// EndReason says why a spawn instance left the Active state.
type EndReason int

const (
	EndedCaught EndReason = iota
	EndedExpired
	EndedFled
)

func (r EndReason) String() string {
	switch r {
	case EndedCaught:
		return "caught"
	case EndedFled:
		return "fled"
	default:
		return "expired"
	}
}

// Notifier is the presentation layer seen from the lifecycle manager. It
// posts the public spawn message and reflects expiry on it.
type Notifier interface {
	// PostSpawn publishes the spawn and returns the message id that
	// identifies this instance.
	PostSpawn(ctx context.Context, guildId, channelId int64, p poro.Poro, stats poro.Stats) (int64, error)
	// SpawnEnded reflects a timer-driven expiry on the public message.
	SpawnEnded(ctx context.Context, sp store.Spawn, reason EndReason)
}

// SpawnResult reports a successful spawn creation.
type SpawnResult struct {
	Poro      poro.Poro
	Stats     poro.Stats
	ChannelId int64
	MessageId int64
	// Trapped lists users whose armed trap consumed this spawn offline.
	Trapped []int64
}

// Manager owns the per-guild spawn lifecycle: Idle -> Active ->
// {Caught | Expired}. Terminal states are absorbing per instance; a new
// spawn for the guild is a new instance (new message id) even though the
// record row is reused.
type Manager struct {
	st       *store.SQLiteStore
	reg      *poro.Registry
	picker   *poro.Picker
	rewards  *Rewards
	notifier Notifier
	clk      Clock
	rng      *mrand.Rand
	log      *logrus.Logger

	// after arms a timer and roll draws the success uniform; both are
	// swapped out in tests.
	after func(d time.Duration, f func())
	roll  func() float64

	// locks serializes spawn creation per guild. Claim resolution does
	// not take it: the store's conditional writes are the arbiter there.
	locks sync.Map // guildId -> *sync.Mutex
}

func NewManager(st *store.SQLiteStore, reg *poro.Registry, picker *poro.Picker, rewards *Rewards, notifier Notifier, clk Clock, rng *mrand.Rand, log *logrus.Logger) *Manager {
	if clk == nil {
		clk = RealClock{}
	}
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		st:       st,
		reg:      reg,
		picker:   picker,
		rewards:  rewards,
		notifier: notifier,
		clk:      clk,
		rng:      rng,
		log:      log,
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		roll:     rng.Float64,
	}
}

func (m *Manager) guildLock(guildId int64) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(guildId, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AttemptSpawn creates a new active spawn for the guild:
//   - ErrNoChannelConfigured when no spawn channel is set;
//   - ErrAlreadyActive when a spawn is live (the mutual-exclusion gate);
//   - BlackoutError during the blackout window, carrying the next
//     permissible time so the caller can reschedule without polling.
//
// On success the offline trap pass runs synchronously and the hard expiry
// timer is armed.
func (m *Manager) AttemptSpawn(ctx context.Context, guildId int64) (*SpawnResult, error) {
	mu := m.guildLock(guildId)
	mu.Lock()
	defer mu.Unlock()

	sched, err := m.st.GetOrCreateSchedule(ctx, guildId)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if sched.GameChannelId == 0 {
		return nil, ErrNoChannelConfigured
	}

	active, err := m.st.GetActiveSpawn(ctx, guildId)
	if err != nil {
		return nil, fmt.Errorf("load active spawn: %w", err)
	}
	if active != nil {
		return nil, ErrAlreadyActive
	}

	now := m.clk.Now()
	// The scheduler avoids triggering during blackout; refusing here too
	// keeps the window closed even for forced spawns.
	if InBlackout(now) {
		return nil, BlackoutError{NextAllowed: NextAllowedSpawn(now, m.rng)}
	}

	id := m.picker.PickId()
	p, ok := m.reg.GetById(id)
	if !ok {
		return nil, fmt.Errorf("picker returned unknown poro %d", id)
	}
	stats := m.picker.RollStats(id)

	messageId, err := m.notifier.PostSpawn(ctx, guildId, sched.GameChannelId, p, stats)
	if err != nil {
		return nil, fmt.Errorf("post spawn: %w", err)
	}

	sp := store.Spawn{
		GuildId:   guildId,
		ChannelId: sched.GameChannelId,
		MessageId: messageId,
		SpawnTs:   now,
		Active:    true,
		PoroId:    p.Id,
		Stats:     stats,
	}
	if err := m.st.SetActiveSpawn(ctx, sp); err != nil {
		return nil, fmt.Errorf("persist spawn: %w", err)
	}

	// Guaranteed offline captures go to the stash before anyone can race.
	trapped := m.processTraps(ctx, guildId, p, stats, now)

	m.armExpiry(guildId, messageId, SpawnTTL, EndedExpired)

	m.log.WithFields(logrus.Fields{
		"guild_id":   guildId,
		"message_id": messageId,
		"poro":       p.Key,
		"trapped":    len(trapped),
	}).Info("spawn posted")

	return &SpawnResult{
		Poro:      p,
		Stats:     stats,
		ChannelId: sched.GameChannelId,
		MessageId: messageId,
		Trapped:   trapped,
	}, nil
}

// processTraps consumes one armed trap charge per holder and records a
// guaranteed capture in the stash. It never reads or writes the public
// spawn's active flag, so it can never end the public race.
func (m *Manager) processTraps(ctx context.Context, guildId int64, p poro.Poro, stats poro.Stats, now time.Time) []int64 {
	users, err := m.st.ArmedTrapUsers(ctx, guildId)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("trap pass failed")
		return nil
	}

	var trapped []int64
	for _, userId := range users {
		consumed, err := m.st.ConsumeArmedTrap(ctx, guildId, userId)
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"guild_id": guildId, "user_id": userId,
			}).Error("consume armed trap failed")
			continue
		}
		if !consumed {
			continue
		}
		err = m.st.InsertStash(ctx, guildId, userId, store.Catch{
			PoroId:   p.Id,
			CaughtTs: now,
			Stats:    stats,
		})
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"guild_id": guildId, "user_id": userId,
			}).Error("stash insert failed")
			continue
		}
		trapped = append(trapped, userId)
	}
	return trapped
}

// MarkInteracted notes the first interaction with a spawn instance and
// arms the flee timer. Later interactions are no-ops; the guard is the
// atomic zero-check in the store.
func (m *Manager) MarkInteracted(ctx context.Context, guildId, messageId int64) {
	first, err := m.st.MarkFirstInteraction(ctx, guildId, messageId, m.clk.Now())
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("mark interaction failed")
		return
	}
	if !first {
		return
	}
	m.armExpiry(guildId, messageId, FleeAfterFirstInteraction, EndedFled)
}

// armExpiry schedules a timer carrying the (guild, instance) payload. The
// callback never trusts captured state: ExpireIfCurrent re-reads and
// compares instance identity before acting, so a timer firing after the
// spawn was caught or superseded silently no-ops.
func (m *Manager) armExpiry(guildId, messageId int64, d time.Duration, reason EndReason) {
	m.after(d, func() {
		if _, err := m.ExpireIfCurrent(context.Background(), guildId, messageId, reason); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"guild_id": guildId, "message_id": messageId,
			}).Error("expiry failed")
		}
	})
}

// ExpireIfCurrent transitions the spawn to inactive if and only if the
// given instance is still the live one. Returns whether this call ended
// the spawn.
func (m *Manager) ExpireIfCurrent(ctx context.Context, guildId, messageId int64, reason EndReason) (bool, error) {
	sp, err := m.st.GetActiveSpawn(ctx, guildId)
	if err != nil {
		return false, fmt.Errorf("load active spawn: %w", err)
	}
	if sp == nil || sp.MessageId != messageId {
		return false, nil
	}

	ended, err := m.st.DeactivateSpawn(ctx, guildId, messageId)
	if err != nil {
		return false, fmt.Errorf("deactivate spawn: %w", err)
	}
	if !ended {
		// A claim won the race between our read and the flip.
		return false, nil
	}

	m.log.WithFields(logrus.Fields{
		"guild_id":   guildId,
		"message_id": messageId,
		"reason":     reason.String(),
	}).Info("spawn ended")

	m.notifier.SpawnEnded(ctx, *sp, reason)
	return true, nil
}

// ClearSpawn is the admin escape hatch for a stuck active flag.
func (m *Manager) ClearSpawn(ctx context.Context, guildId int64) error {
	if err := m.st.ClearActiveSpawn(ctx, guildId); err != nil {
		return fmt.Errorf("clear spawn: %w", err)
	}
	return nil
}

// ActiveSpawn exposes the live spawn record for presentation reads.
func (m *Manager) ActiveSpawn(ctx context.Context, guildId int64) (*store.Spawn, error) {
	return m.st.GetActiveSpawn(ctx, guildId)
}
