package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/five82/jobdeck/internal/app"
	"github.com/five82/jobdeck/internal/config"
	"github.com/five82/jobdeck/internal/logging"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
)

// env holds what a command needs once flags, env and the config file
// have been merged.
type env struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	cfg      config.Config
	log      logging.Logger
	closeLog func() error
	svc      *app.Services
}

// NewRootCommand builds the jobdeck command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	rt := &env{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "jobdeck",
		Short:         "Browse a job portal from the terminal.",
		Long:          `jobdeck keeps a local cache of the portal's companies and jobs and revalidates it in the background.`,
		Version:       version + " (" + commit + ")",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.setup(true); err != nil {
				return err
			}
			defer rt.teardown()
			return app.Run(cmd.Context(), app.Options{
				Services:  rt.svc,
				PrefsPath: rt.v.GetString("prefs"),
			})
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default "+config.DefaultPath()+")")
	flags.String("api-url", "", "portal API base URL")
	flags.String("token", "", "bearer token for the portal API")
	flags.String("ttl", "", "cache TTL, e.g. 5m or 300")
	flags.String("log-file", "", "log file used by the interactive UI")
	flags.String("log-backend", "", "log backend: zap or logrus")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("prefs", "", "UI preferences file")
	flags.BoolP("verbose", "v", false, "log to stderr at the configured level")
	flags.Bool("no-color", false, "disable coloured output")
	_ = rt.v.BindPFlags(flags)

	rt.v.SetEnvPrefix("JOBDECK")
	rt.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	rt.v.AutomaticEnv()

	root.AddCommand(
		newCompaniesCommand(rt),
		newCompanyCommand(rt),
		newJobsCommand(rt),
		newJobCommand(rt),
		newRefreshCommand(rt),
		newApplyCommand(rt),
		newSaveCommand(rt),
		newEditCommand(rt),
		newContactCommand(rt),
		newVersionCommand(rt),
	)
	return root
}

// Execute runs the command tree against the process's stdio.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// resolveConfig merges the config file with env and flag overrides.
func (rt *env) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(rt.v.GetString("config"))
	if err != nil {
		return config.Config{}, err
	}
	return cfg.Apply(config.Overrides{
		APIURL:     rt.v.GetString("api-url"),
		Token:      rt.v.GetString("token"),
		CacheTTL:   rt.v.GetString("ttl"),
		LogFile:    rt.v.GetString("log-file"),
		LogBackend: rt.v.GetString("log-backend"),
		LogLevel:   rt.v.GetString("log-level"),
	})
}

// setup resolves config, opens the logger and wires the services. The
// interactive UI owns the terminal, so it logs to the log file; headless
// commands log warnings to stderr unless --verbose is set.
func (rt *env) setup(interactive bool) error {
	cfg, err := rt.resolveConfig()
	if err != nil {
		return err
	}
	rt.cfg = cfg
	setColor(rt.v.GetBool("no-color"))

	logOpts := logging.Options{Backend: cfg.LogBackend, Level: cfg.LogLevel, Stderr: rt.errOut}
	switch {
	case interactive:
		logOpts.Path = cfg.LogFile
	case !rt.v.GetBool("verbose"):
		logOpts.Level = "warn"
	}
	log, closeLog, err := logging.Open(logOpts)
	if err != nil {
		return err
	}
	rt.log, rt.closeLog = log, closeLog

	svc, err := app.NewServices(cfg, log, nil)
	if err != nil {
		_ = closeLog()
		return err
	}
	rt.svc = svc
	return nil
}

func (rt *env) teardown() {
	if rt.svc != nil {
		rt.svc.Close()
	}
	if rt.closeLog != nil {
		_ = rt.closeLog()
	}
}

// headless wraps a command body with setup and teardown.
func (rt *env) headless(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := rt.setup(false); err != nil {
			return err
		}
		defer rt.teardown()
		return run(cmd, args)
	}
}

// errSilent signals a failure that has already been reported to the user.
var errSilent = errors.New("silent failure")

// IsSilent reports whether err was already printed by the command.
func IsSilent(err error) bool {
	return errors.Is(err, errSilent)
}

func newVersionCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(rt.out, "jobdeck %s (%s)\n", version, commit)
			return err
		},
	}
}
