package game

import (
	"errors"
	"fmt"
	"time"
)

// Expected, recoverable game conditions. Each maps to a user-visible,
// non-destructive response; none should abort the process. Store-level
// failures propagate as wrapped errors instead.
var (
	ErrNoChannelConfigured  = errors.New("no spawn channel configured")
	ErrAlreadyActive        = errors.New("a spawn is already active")
	ErrNoActiveSpawn        = errors.New("no active spawn")
	ErrStaleSpawn           = errors.New("spawn is no longer active")
	ErrDuplicateAttempt     = errors.New("already attempted this spawn")
	ErrBoostAlreadyPlaced   = errors.New("berry already tossed at this spawn")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrCatchNotFound        = errors.New("no such catch in your collection")
)

// BlackoutError is returned when a spawn is refused inside the blackout
// window. NextAllowed lets the caller reschedule without busy-polling.
type BlackoutError struct {
	NextAllowed time.Time
}

func (e BlackoutError) Error() string {
	return fmt.Sprintf("spawns are suppressed until %s", e.NextAllowed.Format(time.RFC3339))
}

// CooldownError is returned when a periodic free grant has not recharged.
type CooldownError struct {
	Remaining time.Duration
}

func (e CooldownError) Error() string {
	return fmt.Sprintf("available again in %s", e.Remaining.Round(time.Second))
}
