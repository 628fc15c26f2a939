package state

import "time"

// Clock provides the current time for TTL and age calculations.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
