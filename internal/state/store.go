package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/five82/jobdeck/internal/logging"
)

// DefaultTTL is how long a successful fetch stays fresh.
const DefaultTTL = 5 * time.Minute

// Options configure a Store. Zero values fall back to defaults.
type Options[K comparable, T any] struct {
	Name         string // entity label for messages and logs, e.g. "companies"
	Fetch        func(ctx context.Context) ([]T, error)
	Key          func(T) K
	TTL          time.Duration
	ErrorMessage string // user-facing message stored on fetch failure
	Clock        Clock
	Logger       logging.Logger

	// Classify adds fields to the fetch failure log entry. Optional.
	Classify func(error) logging.Fields
}

// Snapshot is a read-only view of a store at a point in time.
type Snapshot[K comparable, T any] struct {
	Items               []T // server data with local overrides applied
	Loading             bool
	Error               string // empty when the last attempt succeeded
	LastFetch           time.Time
	ConsecutiveFailures int
	Local               map[K]struct{} // keys whose value is a local override
}

// IsLocal reports whether the item for key carries a local override.
func (s Snapshot[K, T]) IsLocal(key K) bool {
	_, ok := s.Local[key]
	return ok
}

// HasData reports whether any items are available.
func (s Snapshot[K, T]) HasData() bool {
	return len(s.Items) > 0
}

// Status summarises a store without its items.
type Status struct {
	Name      string
	Count     int
	Local     int
	Loading   bool
	Error     string
	LastFetch time.Time
	Failures  int
	Age       time.Duration
	HasAge    bool
	Stale     bool
}

// AgeSeconds returns the age in whole seconds, or -1 if never fetched.
func (s Status) AgeSeconds() int64 {
	if !s.HasAge {
		return -1
	}
	return int64(s.Age / time.Second)
}

type fetchCall struct {
	done chan struct{}
	seq  uint64 // patch sequence when the fetch started
}

// override is a local value stamped with the patch sequence that wrote it.
type override[T any] struct {
	value T
	seq   uint64
}

func newFetchCall() *fetchCall {
	return &fetchCall{done: make(chan struct{})}
}

// Store caches one remote collection. It keeps at most one fetch in flight,
// serves the last good items while refreshing, and records fetch failures
// instead of returning them.
type Store[K comparable, T any] struct {
	opts  Options[K, T]
	log   logging.Logger
	stats Stats

	mu        sync.RWMutex
	items     []T
	index     map[K]int
	local     map[K]override[T]
	patchSeq  uint64
	loading   bool
	errMsg    string
	lastFetch time.Time
	failures  int
	inflight  *fetchCall
	trailing  *fetchCall // forced refresh queued behind inflight
}

// New builds a Store. Fetch and Key are required.
func New[K comparable, T any](opts Options[K, T]) *Store[K, T] {
	if opts.Fetch == nil || opts.Key == nil {
		panic("state: Options.Fetch and Options.Key are required")
	}
	opts.Name = coalesce(strings.TrimSpace(opts.Name), "items")
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	opts.ErrorMessage = coalesce(opts.ErrorMessage,
		fmt.Sprintf("Failed to load %s. Please try again later.", opts.Name))
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Store[K, T]{
		opts: opts,
		log:  logging.With(opts.Logger, logging.Fields{"store": opts.Name}),
	}
}

// Name returns the entity label.
func (s *Store[K, T]) Name() string { return s.opts.Name }

// TTL returns the freshness window.
func (s *Store[K, T]) TTL() time.Duration { return s.opts.TTL }

// Stats exposes the store counters.
func (s *Store[K, T]) Stats() *Stats { return &s.stats }

// Load fetches the collection. Unless force is set, the call is a no-op while
// another fetch is in flight or while the cache is younger than the TTL.
// A forced load that finds a fetch in flight queues one follow-up fetch and
// waits for it. Load reports whether a fetch ran on behalf of this call.
//
// Fetch errors never surface here; they are recorded in Snapshot().Error.
func (s *Store[K, T]) Load(ctx context.Context, force bool) bool {
	run, wait := s.claim(force, "load")
	switch {
	case run != nil:
		s.run(ctx, run)
		return true
	case wait != nil:
		return s.await(ctx, wait)
	default:
		return false
	}
}

// Refetch is Load(ctx, false).
func (s *Store[K, T]) Refetch(ctx context.Context) bool {
	return s.Load(ctx, false)
}

// ForceRefresh always fetches and blocks until that fetch completes or ctx is
// done. The returned status reflects the outcome.
func (s *Store[K, T]) ForceRefresh(ctx context.Context) Status {
	s.Load(ctx, true)
	return s.Status()
}

// claim reserves the fetch slot. It returns the call the caller must run, or
// the queued call a forced caller should wait on. Both nil means skip.
func (s *Store[K, T]) claim(force bool, reason string) (run, wait *fetchCall) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil {
		if !force {
			s.stats.coalesced.Add(1)
			s.log.Debug("load skipped: fetch in flight", logging.Fields{"reason": reason})
			return nil, nil
		}
		if s.trailing == nil {
			s.trailing = newFetchCall()
		}
		return nil, s.trailing
	}

	if !force && !s.lastFetch.IsZero() && s.opts.Clock.Now().Sub(s.lastFetch) < s.opts.TTL {
		s.stats.skipped.Add(1)
		s.log.Debug("load skipped: cache fresh", logging.Fields{"reason": reason})
		return nil, nil
	}

	s.inflight = newFetchCall()
	s.loading = true
	return s.inflight, nil
}

func (s *Store[K, T]) await(ctx context.Context, call *fetchCall) bool {
	select {
	case <-call.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// run performs the fetch for call. Caller cancellation does not abort it.
func (s *Store[K, T]) run(ctx context.Context, call *fetchCall) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	call.seq = s.patchSeq
	s.mu.Unlock()

	s.stats.fetches.Add(1)
	started := s.opts.Clock.Now()
	s.log.Debug("fetch started", nil)

	items, err := s.safeFetch(ctx)

	if next := s.commit(call, items, err, started); next != nil {
		go s.run(ctx, next)
	}
}

func (s *Store[K, T]) safeFetch(ctx context.Context) (items []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return s.opts.Fetch(ctx)
}

// commit applies a fetch result, releases call and promotes any queued forced
// fetch, which it returns for the caller to start.
func (s *Store[K, T]) commit(call *fetchCall, items []T, err error, started time.Time) *fetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock.Now()
	if err != nil {
		s.stats.failures.Add(1)
		s.errMsg = s.opts.ErrorMessage
		s.failures++
		fields := logging.Fields{
			"error":    err.Error(),
			"failures": s.failures,
			"took":     now.Sub(started).String(),
		}
		if s.opts.Classify != nil {
			for k, v := range s.opts.Classify(err) {
				fields[k] = v
			}
		}
		s.log.Warn("fetch failed", fields)
	} else {
		s.items = clone(items)
		s.index = make(map[K]int, len(s.items))
		for i, item := range s.items {
			s.index[s.opts.Key(item)] = i
		}
		// Overrides written after the fetch started may not be reflected in
		// items yet.
		for k, o := range s.local {
			if _, ok := s.index[k]; !ok || o.seq <= call.seq {
				delete(s.local, k)
			}
		}
		s.errMsg = ""
		s.failures = 0
		s.lastFetch = now
		s.log.Debug("fetch finished", logging.Fields{
			"count": len(s.items),
			"took":  now.Sub(started).String(),
		})
	}

	close(call.done)
	next := s.trailing
	s.trailing = nil
	s.inflight = next
	s.loading = next != nil
	return next
}

// revalidate is the non-blocking Load(false) used by background triggers.
func (s *Store[K, T]) revalidate(ctx context.Context, reason string) {
	run, _ := s.claim(false, reason)
	if run == nil {
		return
	}
	s.log.Debug("revalidating", logging.Fields{"reason": reason})
	go s.run(ctx, run)
}

// CacheAgeSeconds returns whole seconds since the last successful fetch. The
// bool is false if the store has never fetched.
func (s *Store[K, T]) CacheAgeSeconds() (int64, bool) {
	s.mu.RLock()
	last := s.lastFetch
	s.mu.RUnlock()
	if last.IsZero() {
		return 0, false
	}
	return int64(s.age(last) / time.Second), true
}

// IsStale reports whether the store has never fetched or its data is at
// least TTL old.
func (s *Store[K, T]) IsStale() bool {
	s.mu.RLock()
	last := s.lastFetch
	s.mu.RUnlock()
	return last.IsZero() || s.age(last) >= s.opts.TTL
}

func (s *Store[K, T]) age(last time.Time) time.Duration {
	return max(s.opts.Clock.Now().Sub(last), 0)
}

// Get returns the item for key, with any local override applied.
func (s *Store[K, T]) Get(key K) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(key)
}

func (s *Store[K, T]) lookupLocked(key K) (T, bool) {
	if o, ok := s.local[key]; ok {
		return o.value, true
	}
	if i, ok := s.index[key]; ok {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Items returns a copy of the cached items in server order.
func (s *Store[K, T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedLocked()
}

// Filter returns the items for which keep returns true.
func (s *Store[K, T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []T
	for _, item := range s.items {
		if o, ok := s.local[s.opts.Key(item)]; ok {
			item = o.value
		}
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store[K, T]) mergedLocked() []T {
	out := clone(s.items)
	if len(s.local) == 0 {
		return out
	}
	for i := range out {
		if o, ok := s.local[s.opts.Key(out[i])]; ok {
			out[i] = o.value
		}
	}
	return out
}

// Patch replaces the item for key with fn(item) as a local override. The
// override is reported separately from server data and is dropped by the
// first successful fetch that started after it. It returns false when key is
// not cached.
func (s *Store[K, T]) Patch(key K, fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.lookupLocked(key)
	if !ok {
		return false
	}
	if s.local == nil {
		s.local = make(map[K]override[T])
	}
	s.patchSeq++
	s.local[key] = override[T]{value: fn(cur), seq: s.patchSeq}
	s.stats.patches.Add(1)
	s.log.Debug("local override applied", logging.Fields{"key": fmt.Sprint(key)})
	return true
}

// IsLocal reports whether key currently carries a local override.
func (s *Store[K, T]) IsLocal(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.local[key]
	return ok
}

// DiscardLocal drops every local override.
func (s *Store[K, T]) DiscardLocal() {
	s.mu.Lock()
	s.local = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store[K, T]) Snapshot() Snapshot[K, T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[K, T]{
		Items:               s.mergedLocked(),
		Loading:             s.loading,
		Error:               s.errMsg,
		LastFetch:           s.lastFetch,
		ConsecutiveFailures: s.failures,
	}
	if len(s.local) > 0 {
		snap.Local = make(map[K]struct{}, len(s.local))
		for k := range s.local {
			snap.Local[k] = struct{}{}
		}
	}
	return snap
}

// Status summarises the store.
func (s *Store[K, T]) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Name:      s.opts.Name,
		Count:     len(s.items),
		Local:     len(s.local),
		Loading:   s.loading,
		Error:     s.errMsg,
		LastFetch: s.lastFetch,
		Failures:  s.failures,
		Stale:     true,
	}
	if !s.lastFetch.IsZero() {
		st.Age = s.age(s.lastFetch)
		st.HasAge = true
		st.Stale = st.Age >= s.opts.TTL
	}
	return st
}

// Activate registers the background revalidation triggers: an unforced load
// now, another every TTL while p is visible, and one per focus event from p.
// The returned stop func deregisters everything and waits for the trigger
// goroutine to exit; it is idempotent and does not cancel a fetch already in
// flight. Cancelling ctx has the same effect as stop. p may be nil, in which
// case the store counts as always visible and has no focus trigger.
func (s *Store[K, T]) Activate(ctx context.Context, p Presence) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	var focus <-chan struct{}
	unsubscribe := func() {}
	if p != nil {
		focus, unsubscribe = p.Subscribe()
	}
	ticker := time.NewTicker(s.opts.TTL)

	s.revalidate(ctx, "mount")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer unsubscribe()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p != nil && !p.Visible() {
					s.log.Debug("interval skipped: not visible", nil)
					continue
				}
				s.revalidate(ctx, "interval")
			case <-focus:
				s.revalidate(ctx, "focus")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

func clone[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}

// coalesce returns def when v is the zero value of T, otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
