package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hosting-assessment/internal/bootstrap"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/pkg/catalog"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// Settings are the global flags handed to the app loader.
type Settings struct {
	ConfigPath string
	Verbose    bool
}

// AppLoader builds the assessment components for commands that read or persist records.
type AppLoader func(ctx context.Context, settings Settings) (*bootstrap.App, error)

type Options struct {
	// Catalog drives the per-question flags of score and submit.
	Catalog *catalog.Catalog
	Load    AppLoader
	In      io.Reader
}

type state struct {
	opts     Options
	settings Settings
}

// NewRootCommand creates the hostingctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Load == nil {
		opts.Load = LoadApp
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	s := &state{opts: opts}

	cmd := &cobra.Command{
		Use:   "hostingctl",
		Short: "Hosting platform assessment tool",
		Long: `hostingctl scores an application's hosting requirements against the
question catalog and recommends aws, on_prem_cloud or physical hosting.

Submitted assessments are stored and wait for a reviewer decision.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&s.settings.ConfigPath, "config", "", "config file (default: configs/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&s.settings.Verbose, "verbose", "v", false, "log at the configured level instead of warn")

	cmd.AddCommand(newQuestionsCommand(s))
	cmd.AddCommand(newScoreCommand(s))
	cmd.AddCommand(newSubmitCommand(s))
	cmd.AddCommand(newReviewCommand(s))
	cmd.AddCommand(newListCommand(s))
	cmd.AddCommand(newShowCommand(s))
	return cmd
}

func (s *state) app(cmd *cobra.Command) (*bootstrap.App, error) {
	return s.opts.Load(cmd.Context(), s.settings)
}

// LoadApp reads the configuration and builds the components against the configured store.
func LoadApp(ctx context.Context, settings Settings) (*bootstrap.App, error) {
	var (
		cfg *config.Config
		err error
	)
	if settings.ConfigPath != "" {
		cfg, err = config.LoadFromFile(settings.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level := "warn"
	if settings.Verbose {
		level = cfg.Logging.Level
	}
	log := logger.NewStructured(level, cfg.Logging.Format)
	return bootstrap.Build(ctx, cfg, log, bootstrap.WithConnectRetry(2, 500*time.Millisecond))
}
