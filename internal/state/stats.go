package state

import "sync/atomic"

// Stats holds per-store counters using atomics for lock-free updates.
type Stats struct {
	fetches   atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64
	coalesced atomic.Int64
	patches   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Fetches   int64 // network fetches started
	Failures  int64 // fetches that ended in error
	Skipped   int64 // unforced loads skipped because the cache was fresh
	Coalesced int64 // unforced loads dropped because a fetch was in flight
	Patches   int64 // local overrides applied
}

// Snapshot returns a point-in-time copy of the stats.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Fetches:   s.fetches.Load(),
		Failures:  s.failures.Load(),
		Skipped:   s.skipped.Load(),
		Coalesced: s.coalesced.Load(),
		Patches:   s.patches.Load(),
	}
}
