package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/jobdeck/internal/catalog"
	"github.com/five82/jobdeck/internal/config"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// barrierStore blocks each ForceRefresh until n callers are inside it.
type barrierStore struct {
	name    string
	arrived *sync.WaitGroup
	status  state.Status
}

func (b barrierStore) ForceRefresh(ctx context.Context) state.Status {
	b.arrived.Done()
	done := make(chan struct{})
	go func() { b.arrived.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return b.status
}

func TestRefreshAll_RunsStoresInParallel(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	stores := []Revalidator{
		barrierStore{arrived: &arrived, status: state.Status{Name: "companies", HasAge: true, Age: 2 * time.Second}},
		barrierStore{arrived: &arrived, status: state.Status{Name: "jobs", HasAge: true, Age: 7 * time.Second}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	summary := RefreshAll(ctx, stores...)

	require.NoError(t, ctx.Err(), "sequential refresh would have deadlocked until the timeout")
	require.Len(t, summary.Statuses, 2)
	require.Equal(t, "companies", summary.Statuses[0].Name)
	require.Equal(t, "jobs", summary.Statuses[1].Name)
	require.True(t, summary.HasAge)
	require.Equal(t, 7*time.Second, summary.Age)
	require.Equal(t, "Updated 7s ago", summary.Label())
	require.True(t, summary.OK())
}

type fixedStore state.Status

func (f fixedStore) ForceRefresh(context.Context) state.Status { return state.Status(f) }

func TestRefreshAll_ReportsFailuresAndUnknownAge(t *testing.T) {
	summary := RefreshAll(context.Background(),
		fixedStore{Name: "companies", HasAge: true, Age: time.Second},
		fixedStore{Name: "jobs", Error: "Failed to load jobs. Please try again later."},
	)

	require.False(t, summary.HasAge)
	require.Equal(t, "Never updated", summary.Label())
	require.False(t, summary.OK())
	require.Equal(t, []string{"Failed to load jobs. Please try again later."}, summary.Failed())
	require.Contains(t, summary.String(), "Failed to load jobs")
}

type fakePortal struct {
	mu        sync.Mutex
	jobs      []portal.Job
	listErr   error
	applyErr  error
	saveCalls atomic.Int32

	// when gate is set, ListJobs reads the jobs, signals listed and waits
	gate   chan struct{}
	listed chan struct{}
}

func (f *fakePortal) ListJobs(context.Context) ([]portal.Job, error) {
	f.mu.Lock()
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := make([]portal.Job, len(f.jobs))
	copy(out, f.jobs)
	gate, listed := f.gate, f.listed
	f.mu.Unlock()

	if gate != nil {
		listed <- struct{}{}
		<-gate
	}
	return out, nil
}

// blockLists makes the next ListJobs call stall after reading server state.
func (f *fakePortal) blockLists() (listed <-chan struct{}, release func()) {
	gate := make(chan struct{})
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.gate, f.listed = gate, ch
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		f.gate, f.listed = nil, nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakePortal) ApplyToJob(_ context.Context, id int64, _ portal.Application) (*portal.ApplicationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			f.jobs[i].Applied = true
			f.jobs[i].ApplicantCount++
			return &portal.ApplicationResult{ID: 500, JobID: id, Status: "submitted", ApplicantCount: f.jobs[i].ApplicantCount}, nil
		}
	}
	return nil, &portal.APIError{Method: http.MethodPost, Status: http.StatusNotFound}
}

func (f *fakePortal) SaveJob(_ context.Context, id int64) error {
	return f.setSaved(id, true)
}

func (f *fakePortal) UnsaveJob(_ context.Context, id int64) error {
	return f.setSaved(id, false)
}

func (f *fakePortal) setSaved(id int64, saved bool) error {
	f.saveCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			f.jobs[i].Saved = saved
			return nil
		}
	}
	return &portal.APIError{Method: http.MethodPost, Status: http.StatusNotFound}
}

func (f *fakePortal) failLists(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func newJobs(t *testing.T) (*fakePortal, *catalog.Jobs) {
	t.Helper()
	api := &fakePortal{jobs: []portal.Job{{ID: 1, Title: "Go Engineer", ApplicantCount: 3}}}
	jobs := catalog.NewJobs(api, catalog.Options{})
	jobs.Load(context.Background(), false)
	return api, jobs
}

func TestApply_RefreshReplacesOverrideWithServerData(t *testing.T) {
	api, jobs := newJobs(t)

	res, err := Apply(context.Background(), api, jobs, 1, portal.Application{CoverLetter: "hi"})
	require.NoError(t, err)
	require.Equal(t, "submitted", res.Status)

	job, ok := jobs.GetByID(1)
	require.True(t, ok)
	require.True(t, job.Applied)
	require.Equal(t, 4, job.ApplicantCount)
	require.False(t, jobs.IsLocal(1), "forced refresh replaced the override")
}

func TestApply_OverrideSurvivesFailedRefresh(t *testing.T) {
	api, jobs := newJobs(t)
	api.failLists(errors.New("gateway timeout"))

	_, err := Apply(context.Background(), api, jobs, 1, portal.Application{})
	require.NoError(t, err)

	job, _ := jobs.GetByID(1)
	require.True(t, job.Applied)
	require.Equal(t, 4, job.ApplicantCount)
	require.True(t, jobs.IsLocal(1))
	require.Equal(t, "Failed to load jobs. Please try again later.", jobs.Snapshot().Error)
}

func TestApply_ErrorLeavesStoreUntouched(t *testing.T) {
	api, jobs := newJobs(t)
	api.applyErr = errors.New("closed")

	_, err := Apply(context.Background(), api, jobs, 1, portal.Application{})
	require.ErrorContains(t, err, "apply to job 1")
	require.False(t, jobs.IsLocal(1))
}

func TestToggleSaved(t *testing.T) {
	api, jobs := newJobs(t)
	ctx := context.Background()

	saved, err := ToggleSaved(ctx, api, jobs, 1)
	require.NoError(t, err)
	require.True(t, saved)

	saved, err = ToggleSaved(ctx, api, jobs, 1)
	require.NoError(t, err)
	require.False(t, saved)
	require.Equal(t, int32(2), api.saveCalls.Load())

	_, err = ToggleSaved(ctx, api, jobs, 42)
	require.Error(t, err)
}

func TestToggleSaved_WriteDuringInFlightFetchIsNotLost(t *testing.T) {
	api, jobs := newJobs(t)
	ctx := context.Background()

	listed, release := api.blockLists()
	fetched := make(chan struct{})
	go func() {
		jobs.Load(ctx, true)
		close(fetched)
	}()
	<-listed // the in-flight fetch holds Saved=false

	type result struct {
		saved bool
		err   error
	}
	toggled := make(chan result, 1)
	go func() {
		saved, err := ToggleSaved(ctx, api, jobs, 1)
		toggled <- result{saved, err}
	}()
	require.Eventually(t, func() bool { return jobs.IsLocal(1) }, time.Second, time.Millisecond)

	release()
	<-fetched
	res := <-toggled
	require.NoError(t, res.err)
	require.True(t, res.saved)

	job, ok := jobs.GetByID(1)
	require.True(t, ok)
	require.True(t, job.Saved, "stale fetch must not undo the write")
	require.False(t, jobs.IsLocal(1), "the trailing fetch carries the server value")
	require.False(t, jobs.IsStale())
}

func TestNewServices_WarmLoadsBothStores(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/companies":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Acme"}]`))
		case "/api/jobs":
			_, _ = w.Write([]byte(`{"data":[{"id":9,"title":"SRE","companyId":1}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cfg := config.Config{APIURL: server.URL, CacheTTL: time.Minute}
	svc, err := NewServices(cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	svc.Warm(context.Background())
	require.Len(t, svc.Companies.Items(), 1)
	require.Len(t, svc.Jobs.ByCompany(1), 1)

	svc.Warm(context.Background())
	require.Equal(t, int32(2), hits.Load(), "fresh stores are not refetched")
	require.Len(t, svc.Stores(), 2)
	require.Equal(t, time.Minute, svc.Jobs.TTL())
}
