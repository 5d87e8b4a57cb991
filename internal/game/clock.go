package game

import "time"

// Clock abstracts wall-clock reads so decay and scheduling math can be
// tested against fixed times.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
