package app

import (
	"context"
	"fmt"

	"github.com/five82/jobdeck/internal/catalog"
	"github.com/five82/jobdeck/internal/portal"
)

// Applier submits job applications.
type Applier interface {
	ApplyToJob(ctx context.Context, id int64, app portal.Application) (*portal.ApplicationResult, error)
}

// Saver bookmarks jobs.
type Saver interface {
	SaveJob(ctx context.Context, id int64) error
	UnsaveJob(ctx context.Context, id int64) error
}

// Apply submits an application, marks the job applied locally and then forces
// a jobs refresh so server data replaces the override. If that refresh fails
// the override stays until the next successful fetch.
func Apply(ctx context.Context, client Applier, jobs *catalog.Jobs, id int64, application portal.Application) (*portal.ApplicationResult, error) {
	res, err := client.ApplyToJob(ctx, id, application)
	if err != nil {
		return nil, fmt.Errorf("apply to job %d: %w", id, err)
	}
	jobs.RecordApplication(id, res.ApplicantCount)
	jobs.ForceRefresh(ctx)
	return res, nil
}

// ToggleSaved flips the saved flag on job id and returns the new value. The
// change is recorded as a local override and then a jobs refresh is forced,
// queued behind any fetch that started before the write.
func ToggleSaved(ctx context.Context, client Saver, jobs *catalog.Jobs, id int64) (bool, error) {
	job, ok := jobs.GetByID(id)
	if !ok {
		return false, fmt.Errorf("job %d not loaded", id)
	}
	saved := !job.Saved
	var err error
	if saved {
		err = client.SaveJob(ctx, id)
	} else {
		err = client.UnsaveJob(ctx, id)
	}
	if err != nil {
		return job.Saved, fmt.Errorf("toggle saved on job %d: %w", id, err)
	}
	jobs.MarkSaved(id, saved)
	jobs.ForceRefresh(ctx)
	return saved, nil
}
