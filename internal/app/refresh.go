package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/jobdeck/internal/state"
)

// Revalidator is a store the refresh control can force.
type Revalidator interface {
	ForceRefresh(ctx context.Context) state.Status
}

// Summary is the outcome of RefreshAll.
type Summary struct {
	Statuses []state.Status
	Age      time.Duration
	HasAge   bool
	Took     time.Duration
}

// Label renders the combined age, e.g. "Updated 3s ago".
func (s Summary) Label() string {
	return state.UpdatedLabel(s.Age, s.HasAge)
}

// Failed lists the error messages of stores whose refresh failed.
func (s Summary) Failed() []string {
	var out []string
	for _, st := range s.Statuses {
		if st.Error != "" {
			out = append(out, st.Error)
		}
	}
	return out
}

// OK reports whether every store refreshed successfully.
func (s Summary) OK() bool {
	return len(s.Failed()) == 0
}

func (s Summary) String() string {
	if s.OK() {
		return s.Label()
	}
	return s.Label() + " (" + strings.Join(s.Failed(), " ") + ")"
}

// RefreshAll force-refreshes every store in parallel and waits for all of
// them. Failures are reported through the statuses, never as an error.
func RefreshAll(ctx context.Context, stores ...Revalidator) Summary {
	started := time.Now()
	statuses := make([]state.Status, len(stores))

	var g errgroup.Group
	for i, store := range stores {
		g.Go(func() error {
			statuses[i] = store.ForceRefresh(ctx)
			return nil
		})
	}
	_ = g.Wait()

	age, ok := state.CombinedAge(statuses...)
	return Summary{
		Statuses: statuses,
		Age:      age,
		HasAge:   ok,
		Took:     time.Since(started),
	}
}
