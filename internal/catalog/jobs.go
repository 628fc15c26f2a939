package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// JobFetcher lists job postings.
type JobFetcher interface {
	ListJobs(ctx context.Context) ([]portal.Job, error)
}

// Jobs is the cached job board.
type Jobs struct {
	*state.Store[int64, portal.Job]
}

// NewJobs builds the job store on top of src.
func NewJobs(src JobFetcher, opts Options) *Jobs {
	return &Jobs{Store: state.New(state.Options[int64, portal.Job]{
		Name:         "jobs",
		Fetch:        src.ListJobs,
		Key:          func(j portal.Job) int64 { return j.ID },
		TTL:          opts.TTL,
		ErrorMessage: "Failed to load jobs. Please try again later.",
		Clock:        opts.Clock,
		Logger:       opts.Logger,
		Classify:     failureFields,
	})}
}

// GetByID returns the job with id.
func (j *Jobs) GetByID(id int64) (portal.Job, bool) {
	return j.Get(id)
}

// ByCategory returns jobs in category, compared case-insensitively. An empty
// category returns every job.
func (j *Jobs) ByCategory(category string) []portal.Job {
	category = strings.TrimSpace(category)
	if category == "" {
		return j.Items()
	}
	return j.Filter(func(job portal.Job) bool {
		return strings.EqualFold(strings.TrimSpace(job.Category), category)
	})
}

// ByCompany returns the jobs posted by companyID.
func (j *Jobs) ByCompany(companyID int64) []portal.Job {
	return j.Filter(func(job portal.Job) bool { return job.CompanyID == companyID })
}

// Categories lists the distinct non-empty categories in sorted order.
func (j *Jobs) Categories() []string {
	seen := make(map[string]string)
	for _, job := range j.Items() {
		name := strings.TrimSpace(job.Category)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; !ok {
			seen[key] = name
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range seen {
		out = append(out, name)
	}
	sort.Slice(out, func(a, b int) bool { return strings.ToLower(out[a]) < strings.ToLower(out[b]) })
	return out
}

// RecordApplication marks job id as applied and bumps its applicant count as a
// local override. It returns false when the job is not cached.
func (j *Jobs) RecordApplication(id int64, applicantCount int) bool {
	return j.Patch(id, func(job portal.Job) portal.Job {
		if !job.Applied {
			job.ApplicantCount++
		}
		if applicantCount > job.ApplicantCount {
			job.ApplicantCount = applicantCount
		}
		job.Applied = true
		return job
	})
}

// MarkSaved sets the saved flag on job id as a local override.
func (j *Jobs) MarkSaved(id int64, saved bool) bool {
	return j.Patch(id, func(job portal.Job) portal.Job {
		job.Saved = saved
		return job
	})
}
