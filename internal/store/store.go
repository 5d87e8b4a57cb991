package store

import (
	"time"

	"github.com/knubgod/poro-hunt/internal/poro"
)

// Spawn is the single per-guild active-spawn record. MessageId identifies
// the spawn instance; a superseding spawn reuses the row with a new id.
type Spawn struct {
	GuildId            int64
	ChannelId          int64
	MessageId          int64
	SpawnTs            time.Time
	Active             bool
	PoroId             poro.PoroId
	Stats              poro.Stats
	FirstInteractionTs time.Time // zero = no interaction yet
}

// User carries progression and inventory for one (guild, user).
type User struct {
	GuildId        int64
	UserId         int64
	XP             int // residual XP toward the next level
	Level          int
	PorosCaught    int
	LastCatchTs    time.Time
	Title          string
	Gold           int
	Berries        int
	Traps          int
	Food           int
	TrapsArmed     int
	LastFreeFoodTs time.Time
}

// Catch is one successful public capture. Hunger and nickname are the only
// mutable fields.
type Catch struct {
	Id              int64
	GuildId         int64
	UserId          int64
	PoroId          poro.PoroId
	CaughtTs        time.Time
	Stats           poro.Stats
	Nickname        string
	HungerUpdatedTs time.Time
}

// Schedule is the per-guild spawn pacing record plus channel config.
type Schedule struct {
	GuildId           int64
	GameChannelId     int64
	ShowcaseChannelId int64
	NextSpawnTs       time.Time
	DailyTarget       int
	DailyCount        int
	DailyDate         string // local calendar day, YYYY-MM-DD
	LastShowcaseTs    time.Time
}

// Reward is the full success outcome applied in one transaction.
type Reward struct {
	GuildId  int64
	UserId   int64
	PoroId   poro.PoroId
	XP       int // new residual XP
	Level    int
	Title    string
	Gold     int // delta
	CaughtTs time.Time
	Stats    poro.Stats
}

// LeaderboardRow is one entry of the top-catchers query.
type LeaderboardRow struct {
	UserId      int64
	Level       int
	PorosCaught int
}

// PoroCount is an aggregate (poro, count) pair for showcase views.
type PoroCount struct {
	PoroId poro.PoroId
	Count  int
}

func toTs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromTs(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
