package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/five82/jobdeck/internal/logging"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type company struct {
	ID    int
	Name  string
	Count int
}

// fakeAPI counts calls and can block or fail on demand.
type fakeAPI struct {
	calls atomic.Int32

	mu    sync.Mutex
	items []company
	err   error
	gate  chan struct{} // when non-nil, each fetch waits for a receive
}

func (f *fakeAPI) fetch(ctx context.Context) ([]company, error) {
	f.calls.Add(1)
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]company, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeAPI) set(items []company, err error) {
	f.mu.Lock()
	f.items = items
	f.err = err
	f.mu.Unlock()
}

func (f *fakeAPI) block() chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	return gate
}

func (f *fakeAPI) unblock() {
	f.mu.Lock()
	f.gate = nil
	f.mu.Unlock()
}

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	clk   *mockClock
	api   *fakeAPI
	store *Store[int, company]
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clk = &mockClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.api = &fakeAPI{items: []company{{ID: 1, Name: "Acme"}}}
	s.store = New(Options[int, company]{
		Name:  "companies",
		Fetch: s.api.fetch,
		Key:   func(c company) int { return c.ID },
		Clock: s.clk,
	})
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestInitialState() {
	snap := s.store.Snapshot()
	s.Empty(snap.Items)
	s.False(snap.Loading)
	s.Empty(snap.Error)
	s.True(snap.LastFetch.IsZero())

	_, ok := s.store.CacheAgeSeconds()
	s.False(ok)
	s.True(s.store.IsStale())
	s.Equal(DefaultTTL, s.store.TTL())
}

func (s *StoreSuite) TestFirstLoadPopulates() {
	s.True(s.store.Load(s.ctx, false))

	snap := s.store.Snapshot()
	s.Len(snap.Items, 1)
	s.Equal("Acme", snap.Items[0].Name)
	s.False(snap.Loading)
	s.Empty(snap.Error)
	s.Equal(s.clk.Now(), snap.LastFetch)
	s.Equal(int32(1), s.api.calls.Load())
}

func (s *StoreSuite) TestTTLRespected() {
	s.store.Load(s.ctx, false)

	s.clk.Advance(100 * time.Second)
	s.False(s.store.Load(s.ctx, false))
	s.Equal(int32(1), s.api.calls.Load(), "no fetch within TTL")

	s.clk.Advance(201 * time.Second) // t=301s
	s.True(s.store.Load(s.ctx, false))
	s.Equal(int32(2), s.api.calls.Load(), "one fetch after TTL")

	s.Equal(int64(1), s.store.Stats().Snapshot().Skipped)
}

func (s *StoreSuite) TestForceBypassesTTL() {
	s.store.Load(s.ctx, false)

	st := s.store.ForceRefresh(s.ctx)
	s.Equal(int32(2), s.api.calls.Load())
	s.Equal("companies", st.Name)
	s.Equal(1, st.Count)
	s.True(st.HasAge)
	s.Empty(st.Error)
}

func (s *StoreSuite) TestNoDuplicateInFlightFetch() {
	gate := s.api.block()

	done := make(chan bool)
	go func() { done <- s.store.Load(s.ctx, false) }()
	s.Eventually(func() bool { return s.api.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.True(s.store.Snapshot().Loading)

	s.False(s.store.Load(s.ctx, false), "second load while in flight is a no-op")

	s.api.unblock()
	close(gate)
	s.True(<-done)

	s.Equal(int32(1), s.api.calls.Load())
	s.Equal(int64(1), s.store.Stats().Snapshot().Coalesced)
	s.False(s.store.Snapshot().Loading)
}

func (s *StoreSuite) TestForceDuringInFlightQueuesOneTrailingFetch() {
	gate := s.api.block()

	go s.store.Load(s.ctx, false)
	s.Eventually(func() bool { return s.api.calls.Load() == 1 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.store.ForceRefresh(s.ctx)
		}()
	}
	// let the forced callers register behind the running fetch
	time.Sleep(20 * time.Millisecond)

	s.api.set([]company{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Globex"}}, nil)
	s.api.unblock()
	close(gate)
	wg.Wait()

	s.Equal(int32(2), s.api.calls.Load(), "forced callers share one trailing fetch")
	s.Len(s.store.Items(), 2, "forced callers observe the trailing fetch")
	s.False(s.store.Snapshot().Loading)
}

func (s *StoreSuite) TestForceRefreshHonoursContextWhileWaiting() {
	gate := s.api.block()
	go s.store.Load(s.ctx, false)
	s.Eventually(func() bool { return s.api.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	s.False(s.store.Load(ctx, true))

	s.api.unblock()
	close(gate)
	s.Eventually(func() bool { return !s.store.Snapshot().Loading }, time.Second, time.Millisecond)
	s.Equal(int32(2), s.api.calls.Load(), "queued fetch still runs for the abandoned caller")
}

func (s *StoreSuite) TestStaleOnError() {
	s.store.Load(s.ctx, false)
	before := s.store.Snapshot()

	s.api.set(nil, errors.New("timeout"))
	s.clk.Advance(10 * time.Second)
	s.store.ForceRefresh(s.ctx)

	snap := s.store.Snapshot()
	s.Equal("Failed to load companies. Please try again later.", snap.Error)
	s.Equal(before.Items, snap.Items)
	s.Equal(before.LastFetch, snap.LastFetch)
	s.Equal(1, snap.ConsecutiveFailures)

	s.api.set([]company{{ID: 1, Name: "Acme"}}, nil)
	s.store.ForceRefresh(s.ctx)
	snap = s.store.Snapshot()
	s.Empty(snap.Error, "error reflects only the latest attempt")
	s.Zero(snap.ConsecutiveFailures)
}

func (s *StoreSuite) TestErrorOnFirstLoadLeavesEmpty() {
	s.api.set(nil, errors.New("connection refused"))
	s.store.Load(s.ctx, false)

	snap := s.store.Snapshot()
	s.Empty(snap.Items)
	s.NotEmpty(snap.Error)
	s.True(snap.LastFetch.IsZero())
	s.True(s.store.IsStale())

	// failure does not start the TTL window
	s.True(s.store.Load(s.ctx, false))
}

func (s *StoreSuite) TestFetchPanicIsRecordedAsFailure() {
	store := New(Options[int, company]{
		Name:  "jobs",
		Fetch: func(context.Context) ([]company, error) { panic("bad json") },
		Key:   func(c company) int { return c.ID },
	})
	store.Load(s.ctx, false)

	snap := store.Snapshot()
	s.Equal("Failed to load jobs. Please try again later.", snap.Error)
	s.False(snap.Loading)
	s.True(store.Load(s.ctx, false), "in-flight guard released after panic")
}

func (s *StoreSuite) TestCacheAgeAndStaleness() {
	s.store.Load(s.ctx, false)

	age, ok := s.store.CacheAgeSeconds()
	s.True(ok)
	s.Zero(age)

	s.clk.Advance(1999 * time.Millisecond)
	age, _ = s.store.CacheAgeSeconds()
	s.Equal(int64(1), age, "age is floored")

	s.False(s.store.IsStale())
	s.clk.Advance(DefaultTTL)
	s.True(s.store.IsStale())
	s.True(s.store.Status().Stale)
}

func (s *StoreSuite) TestLookupsAreIdempotent() {
	s.store.Load(s.ctx, false)

	a, ok := s.store.Get(1)
	s.True(ok)
	b, _ := s.store.Get(1)
	s.Equal(a, b)

	_, ok = s.store.Get(42)
	s.False(ok)

	s.Len(s.store.Filter(func(c company) bool { return c.Name == "Acme" }), 1)
	s.Empty(s.store.Filter(func(c company) bool { return c.Name == "Initech" }))
}

func (s *StoreSuite) TestSnapshotIsACopy() {
	s.store.Load(s.ctx, false)

	snap := s.store.Snapshot()
	snap.Items[0].Name = "mutated"

	got, _ := s.store.Get(1)
	s.Equal("Acme", got.Name)
}

func (s *StoreSuite) TestPatchIsTaggedLocalAndDroppedOnFetch() {
	s.store.Load(s.ctx, false)

	s.True(s.store.Patch(1, func(c company) company {
		c.Count++
		return c
	}))
	s.False(s.store.Patch(99, func(c company) company { return c }))

	got, _ := s.store.Get(1)
	s.Equal(1, got.Count)
	s.True(s.store.IsLocal(1))
	snap := s.store.Snapshot()
	s.True(snap.IsLocal(1))
	s.Equal(1, snap.Items[0].Count)
	s.Equal(1, s.store.Status().Local)

	s.store.ForceRefresh(s.ctx)
	got, _ = s.store.Get(1)
	s.Zero(got.Count, "server data replaces the override")
	s.False(s.store.IsLocal(1))
}

func (s *StoreSuite) TestPatchSurvivesFailedFetch() {
	s.store.Load(s.ctx, false)
	s.store.Patch(1, func(c company) company { c.Count = 7; return c })

	s.api.set(nil, errors.New("boom"))
	s.store.ForceRefresh(s.ctx)

	got, _ := s.store.Get(1)
	s.Equal(7, got.Count)

	s.store.DiscardLocal()
	got, _ = s.store.Get(1)
	s.Zero(got.Count)
}

func (s *StoreSuite) TestCustomErrorMessage() {
	store := New(Options[int, company]{
		Fetch:        func(context.Context) ([]company, error) { return nil, errors.New("x") },
		Key:          func(c company) int { return c.ID },
		ErrorMessage: "nope",
	})
	store.Load(s.ctx, false)
	s.Equal("nope", store.Snapshot().Error)
	s.Equal("items", store.Name())
}

func (s *StoreSuite) TestNewPanicsWithoutFetch() {
	s.Panics(func() { New(Options[int, company]{Key: func(c company) int { return c.ID }}) })
}

func (s *StoreSuite) TestPatchDuringInFlightFetchSurvivesCommit() {
	s.store.Load(s.ctx, false)
	gate := s.api.block()

	done := make(chan struct{})
	go func() {
		s.store.Load(s.ctx, true)
		close(done)
	}()
	s.Eventually(func() bool { return s.api.calls.Load() == 2 }, time.Second, time.Millisecond)

	// written after the fetch read the server state
	s.True(s.store.Patch(1, func(c company) company { c.Count = 5; return c }))

	s.api.unblock()
	close(gate)
	<-done

	got, _ := s.store.Get(1)
	s.Equal(5, got.Count, "fetch that started before the patch keeps it")
	s.True(s.store.IsLocal(1))
	s.False(s.store.IsStale())

	s.store.ForceRefresh(s.ctx)
	got, _ = s.store.Get(1)
	s.Zero(got.Count, "a fetch started after the patch replaces it")
	s.False(s.store.IsLocal(1))
}

func (s *StoreSuite) TestOverrideForRemovedItemIsDropped() {
	s.store.Load(s.ctx, false)
	gate := s.api.block()

	done := make(chan struct{})
	go func() {
		s.store.Load(s.ctx, true)
		close(done)
	}()
	s.Eventually(func() bool { return s.api.calls.Load() == 2 }, time.Second, time.Millisecond)
	s.store.Patch(1, func(c company) company { c.Count = 5; return c })

	s.api.set([]company{{ID: 2, Name: "Globex"}}, nil)
	s.api.unblock()
	close(gate)
	<-done

	_, ok := s.store.Get(1)
	s.False(ok)
	s.False(s.store.IsLocal(1))
}

func (s *StoreSuite) TestNonPositiveTTLUsesDefault() {
	store := New(Options[int, company]{
		Fetch: s.api.fetch,
		Key:   func(c company) int { return c.ID },
		TTL:   -time.Second,
	})
	s.Equal(DefaultTTL, store.TTL())

	s.NotPanics(func() {
		stop := store.Activate(s.ctx, nil)
		stop()
	})
}

type recordedEntry struct {
	msg    string
	fields logging.Fields
}

type recordingLogger struct {
	logging.Nop
	mu    sync.Mutex
	warns []recordedEntry
}

func (r *recordingLogger) Warn(msg string, f logging.Fields) {
	r.mu.Lock()
	r.warns = append(r.warns, recordedEntry{msg: msg, fields: f})
	r.mu.Unlock()
}

func (s *StoreSuite) TestClassifyAddsFailureFields() {
	rec := &recordingLogger{}
	errDown := errors.New("503")
	store := New(Options[int, company]{
		Name:   "jobs",
		Fetch:  func(context.Context) ([]company, error) { return nil, errDown },
		Key:    func(c company) int { return c.ID },
		Logger: rec,
		Classify: func(err error) logging.Fields {
			return logging.Fields{"retryable": errors.Is(err, errDown)}
		},
	})
	store.Load(s.ctx, false)

	s.Require().Len(rec.warns, 1)
	entry := rec.warns[0]
	s.Equal("fetch failed", entry.msg)
	s.Equal(true, entry.fields["retryable"])
	s.Equal("503", entry.fields["error"])
	s.Equal("jobs", entry.fields["store"])
}
