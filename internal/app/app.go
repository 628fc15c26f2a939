package app

import (
	"context"
	"fmt"

	"github.com/five82/jobdeck/internal/logging"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/prefs"
	"github.com/five82/jobdeck/internal/state"
	"github.com/five82/jobdeck/internal/ui"
)

// Options configure the interactive session.
type Options struct {
	Services  *Services
	PrefsPath string // empty uses ~/.config/jobdeck/prefs.toml
}

// Run activates the stores and runs the TUI until the user quits or ctx is
// cancelled. The background triggers are stopped before Run returns.
func Run(ctx context.Context, opts Options) error {
	svc := opts.Services
	if svc == nil {
		return fmt.Errorf("app: services are required")
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		svc.Log.Warn("prefs load failed", logging.Fields{"error": err.Error()})
	}

	focus := state.NewFocus()
	stopCompanies := svc.Companies.Activate(ctx, focus)
	defer stopCompanies()
	stopJobs := svc.Jobs.Activate(ctx, focus)
	defer stopJobs()

	svc.Log.Info("session started", logging.Fields{
		"api_url": svc.Client.BaseURL(),
		"ttl":     svc.Config.CacheTTL.String(),
	})

	return ui.Run(ui.Options{
		Context:   ctx,
		Companies: svc.Companies,
		Jobs:      svc.Jobs,
		Focus:     focus,
		Refresh: func(ctx context.Context) []state.Status {
			summary := RefreshAll(ctx, svc.Stores()...)
			svc.Log.Info("manual refresh", logging.Fields{
				"took":   summary.Took.String(),
				"failed": len(summary.Failed()),
			})
			return summary.Statuses
		},
		Apply: func(ctx context.Context, id int64) error {
			_, err := Apply(ctx, svc.Client, svc.Jobs, id, portal.Application{})
			return err
		},
		ToggleSaved: func(ctx context.Context, id int64) (bool, error) {
			return ToggleSaved(ctx, svc.Client, svc.Jobs, id)
		},
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		Log:       svc.Log,
	})
}
