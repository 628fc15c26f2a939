package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/five82/jobdeck/internal/catalog"
	"github.com/five82/jobdeck/internal/config"
	"github.com/five82/jobdeck/internal/logging"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// Services is the wired set of collaborators shared by the TUI and the CLI.
type Services struct {
	Config    config.Config
	Client    *portal.Client
	Companies *catalog.Companies
	Jobs      *catalog.Jobs
	Log       logging.Logger

	details *portal.DetailCache
}

// NewServices builds the portal client and the entity stores for cfg. clock
// may be nil.
func NewServices(cfg config.Config, log logging.Logger, clock state.Clock) (*Services, error) {
	log = logging.OrNop(log)

	details, err := portal.NewDetailCache(0, 0)
	if err != nil {
		return nil, fmt.Errorf("init detail cache: %w", err)
	}
	client, err := portal.NewClient(cfg.APIURL,
		portal.WithToken(cfg.Token),
		portal.WithDetailCache(details),
	)
	if err != nil {
		_ = details.Close()
		return nil, fmt.Errorf("init portal client: %w", err)
	}

	opts := catalog.Options{TTL: cfg.CacheTTL, Clock: clock, Logger: log}
	return &Services{
		Config:    cfg,
		Client:    client,
		Companies: catalog.NewCompanies(client, opts),
		Jobs:      catalog.NewJobs(client, opts),
		Log:       log,
		details:   details,
	}, nil
}

// Stores lists the stores the refresh control drives.
func (s *Services) Stores() []Revalidator {
	return []Revalidator{s.Companies, s.Jobs}
}

// Warm runs an unforced load on every store in parallel and waits for them.
// Fresh stores are left alone.
func (s *Services) Warm(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { s.Companies.Load(ctx, false); return nil })
	g.Go(func() error { s.Jobs.Load(ctx, false); return nil })
	_ = g.Wait()
}

// Close releases the detail cache.
func (s *Services) Close() {
	if s.details != nil {
		_ = s.details.Close()
	}
}
