package ratelimit

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type key struct {
	guildId int64
	userId  int64
	bucket  string
}

// Limiter applies a per-(guild, user, bucket) cooldown with a jittered
// duration drawn from [min, max). The jitter keeps users from learning the
// exact cooldown and timing their spam to it.
type Limiter struct {
	mu   sync.Mutex
	next map[key]time.Time
	min  time.Duration
	max  time.Duration
	clk  Clock
	rng  *mrand.Rand
}

func NewLimiter(min, max time.Duration, clk Clock) *Limiter {
	if clk == nil {
		clk = RealClock{}
	}
	if max < min {
		max = min
	}

	seed := func() int64 {
		var b [8]byte
		if _, err := rand.Read(b[:]); err == nil {
			return int64(binary.LittleEndian.Uint64(b[:]))
		}
		return time.Now().UnixNano()
	}()

	return &Limiter{
		next: make(map[key]time.Time),
		min:  min,
		max:  max,
		clk:  clk,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Try consumes the key's budget if it is off cooldown. Returns false and
// the remaining wait otherwise.
func (l *Limiter) Try(guildId, userId int64, bucket string) (bool, time.Duration) {
	now := l.clk.Now()
	k := key{guildId, userId, bucket}

	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.next[k]; ok && now.Before(until) {
		return false, until.Sub(now)
	}

	l.next[k] = now.Add(l.nextCooldown())
	return true, 0
}

func (l *Limiter) nextCooldown() time.Duration {
	if l.min == l.max {
		return l.min
	}
	jitter := time.Duration(l.rng.Int63n(int64(l.max - l.min)))
	return l.min + jitter
}

func (l *Limiter) Reset(guildId, userId int64, bucket string) {
	l.mu.Lock()
	delete(l.next, key{guildId, userId, bucket})
	l.mu.Unlock()
}
