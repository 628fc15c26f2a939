package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/jobdeck/internal/portal"
)

type portalServer struct {
	*httptest.Server

	mu          sync.Mutex
	jobs        []portal.Job
	fail        bool
	lastApply   portal.Application
	listCalls   atomic.Int32
	detailCalls atomic.Int32
}

func newPortalServer(t *testing.T) *portalServer {
	t.Helper()
	ps := &portalServer{
		jobs: []portal.Job{
			{ID: 10, Title: "Go Engineer", CompanyID: 2, CompanyName: "Initech", Category: "Engineering", ApplicantCount: 4},
			{ID: 11, Title: "Designer", CompanyID: 1, CompanyName: "Acme", Category: "Design", Remote: true},
		},
	}
	companies := []portal.Company{
		{ID: 1, Name: "Acme", Industry: "Manufacturing", Location: "Denver"},
		{ID: 2, Name: "Initech", Industry: "Software", Location: "Austin"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/companies", func(w http.ResponseWriter, _ *http.Request) {
		if ps.failing() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		writeJSON(w, companies)
	})
	mux.HandleFunc("GET /api/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		ps.detailCalls.Add(1)
		if r.PathValue("id") != "2" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, companies[1])
	})
	mux.HandleFunc("GET /api/jobs", func(w http.ResponseWriter, _ *http.Request) {
		ps.listCalls.Add(1)
		if ps.failing() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		ps.mu.Lock()
		defer ps.mu.Unlock()
		writeJSON(w, map[string]any{"data": ps.jobs})
	})
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		ps.detailCalls.Add(1)
		ps.mu.Lock()
		defer ps.mu.Unlock()
		for _, job := range ps.jobs {
			if r.PathValue("id") == jsonID(job.ID) {
				writeJSON(w, job)
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("POST /api/jobs/{id}/apply", func(w http.ResponseWriter, r *http.Request) {
		var body portal.Application
		_ = json.NewDecoder(r.Body).Decode(&body)
		ps.mu.Lock()
		defer ps.mu.Unlock()
		ps.lastApply = body
		ps.jobs[0].Applied = true
		ps.jobs[0].ApplicantCount++
		writeJSON(w, portal.ApplicationResult{ID: 99, JobID: 10, Status: "submitted", ApplicantCount: ps.jobs[0].ApplicantCount})
	})
	mux.HandleFunc("POST /api/jobs/{id}/save", func(w http.ResponseWriter, _ *http.Request) {
		ps.mu.Lock()
		ps.jobs[1].Saved = true
		ps.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	ps.Server = httptest.NewServer(mux)
	t.Cleanup(ps.Close)
	return ps
}

func (ps *portalServer) setFailing() {
	ps.mu.Lock()
	ps.fail = true
	ps.mu.Unlock()
}

func (ps *portalServer) failing() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.fail
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// runCLI executes the command tree with an isolated home and config path.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	base := []string{"--config", filepath.Join(home, "missing.toml"), "--no-color"}

	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestJobsListsAndFiltersByCategory(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Engineer")
	assert.Contains(t, out, "Designer")
	assert.Contains(t, out, "Remote")

	out, _, err = runCLI(t, "--api-url", srv.URL, "jobs", "--category", "design")
	require.NoError(t, err)
	assert.Contains(t, out, "Designer")
	assert.NotContains(t, out, "Go Engineer")
}

func TestJobsFilterByCompanyName(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "jobs", "--company", "initech")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Engineer")
	assert.NotContains(t, out, "Designer")

	_, _, err = runCLI(t, "--api-url", srv.URL, "jobs", "--company", "Globex")
	require.EqualError(t, err, `no company named "Globex"`)
}

func TestCompaniesSearch(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "companies", "--search", "soft")
	require.NoError(t, err)
	assert.Contains(t, out, "Initech")
	assert.NotContains(t, out, "Acme")
}

func TestCompanyShowsDetailAndJobs(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "company", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Initech")
	assert.Contains(t, out, "Software")
	assert.Contains(t, out, "Go Engineer")
	assert.NotContains(t, out, "Designer")

	_, _, err = runCLI(t, "--api-url", srv.URL, "company", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFailedFetchReportsFixedMessage(t *testing.T) {
	srv := newPortalServer(t)
	srv.setFailing()

	_, _, err := runCLI(t, "--api-url", srv.URL, "jobs")
	require.EqualError(t, err, "Failed to load jobs. Please try again later.")

	_, _, err = runCLI(t, "--api-url", srv.URL, "companies")
	require.EqualError(t, err, "Failed to load companies. Please try again later.")
}

func TestRefreshReportsEveryStore(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "companies")
	assert.Contains(t, out, "jobs")
	assert.Contains(t, out, "Updated 0s ago")
	assert.Equal(t, int32(1), srv.listCalls.Load())
}

func TestRefreshFailureIsSilentError(t *testing.T) {
	srv := newPortalServer(t)
	srv.setFailing()

	out, errOut, err := runCLI(t, "--api-url", srv.URL, "refresh")
	require.Error(t, err)
	assert.True(t, IsSilent(err))
	assert.Contains(t, out, "Never updated")
	assert.Contains(t, errOut, "Failed to load companies. Please try again later.")
	assert.Contains(t, errOut, "Failed to load jobs. Please try again later.")
}

func TestApplySendsNoteAndRefreshes(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "apply", "10", "--note", "  hello  ")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied to Go Engineer (5 applicants)")
	srv.mu.Lock()
	assert.Equal(t, "hello", srv.lastApply.CoverLetter)
	srv.mu.Unlock()
	assert.Equal(t, int32(2), srv.listCalls.Load(), "apply is followed by a forced refresh")

	_, _, err = runCLI(t, "--api-url", srv.URL, "apply", "10")
	require.EqualError(t, err, "already applied to Go Engineer")
}

func TestSaveTogglesFlag(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "save", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved job 11")

	_, _, err = runCLI(t, "--api-url", srv.URL, "save", "404")
	require.EqualError(t, err, "job 404 not loaded")
}

func TestJobDetail(t *testing.T) {
	srv := newPortalServer(t)

	out, _, err := runCLI(t, "--api-url", srv.URL, "job", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Engineer")
	assert.Contains(t, out, "Applicants:")
	assert.Equal(t, int32(1), srv.detailCalls.Load())

	_, _, err = runCLI(t, "--api-url", srv.URL, "job", "abc")
	require.EqualError(t, err, `invalid id "abc"`)
}

func TestEditRequiresAField(t *testing.T) {
	srv := newPortalServer(t)

	_, _, err := runCLI(t, "--api-url", srv.URL, "edit", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	srv := newPortalServer(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_url = \"http://127.0.0.1:1\"\n"), 0o644))
	t.Setenv("JOBDECK_API_URL", srv.URL)

	var out bytes.Buffer
	root := NewRootCommand(&out, &bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "--no-color", "companies"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Initech")
}

func TestInvalidTTLFlag(t *testing.T) {
	_, _, err := runCLI(t, "--ttl", "0", "companies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 1s")
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jobdeck dev (none)\n", out)
}
