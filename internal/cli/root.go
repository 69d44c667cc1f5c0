// Package cli implements the wfkit command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/wfkit/internal/config"
	"github.com/me/wfkit/internal/logging"
	"github.com/me/wfkit/internal/planner"
	"github.com/me/wfkit/internal/store"
	"github.com/me/wfkit/pkg/workflow"
)

// app carries what the commands share: resolved configuration, the logger
// and lazily opened collaborators.
type app struct {
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagDB        string
	flagPlanner   string

	version string
	cfg     config.Config
	logger  *slog.Logger
	planner workflow.Planner
	store   store.Store
}

// Option configures the command tree.
type Option func(*app)

// WithPlanner replaces the planner tool client.
func WithPlanner(p workflow.Planner) Option {
	return func(a *app) { a.planner = p }
}

// WithVersion sets the version reported by the serve command.
func WithVersion(v string) Option {
	return func(a *app) { a.version = v }
}

// NewRootCmd creates the root cobra command for the wfkit CLI.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{version: "dev"}
	for _, o := range opts {
		o(a)
	}

	root := &cobra.Command{
		Use:   "wfkit",
		Short: "wfkit builds, renders and plans abstract workflows",
		Long: "wfkit builds abstract workflow documents from YAML, JSON or JavaScript,\n" +
			"hands them to the planner and tracks the planned runs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfig, "config", "", "Config file (YAML)")
	pf.BoolVar(&a.flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&a.flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flagLogFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&a.flagDB, "db", "", "Run registry path (or "+config.EnvDB+" env)")
	pf.StringVar(&a.flagPlanner, "planner-bin", "", "Directory of the planner tools (or "+config.EnvPlannerBin+" env)")

	root.AddCommand(
		newRenderCmd(a),
		newBuildCmd(a),
		newPlanCmd(a),
		newRunCmd(a),
		newStatusCmd(a),
		newWaitCmd(a),
		newRemoveCmd(a),
		newAnalyzeCmd(a),
		newStatisticsCmd(a),
		newGraphCmd(a),
		newRunsCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup resolves configuration: defaults, then the config file and the
// environment, then flags that were set explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flagConfig)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.flagLogFormat
	}
	if a.flagDebug {
		cfg.LogLevel = "debug"
	}
	if a.flagDB != "" {
		cfg.DBPath = a.flagDB
	}
	if a.flagPlanner != "" {
		cfg.PlannerBin = a.flagPlanner
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})

	if a.planner == nil {
		a.planner = planner.New(cfg.PlannerBin, planner.WithLogger(a.logger))
	}
	return nil
}

// openStore opens and migrates the run registry on first use.
func (a *app) openStore(cmd *cobra.Command) (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.cfg.DBPath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
	}
	st, err := store.NewSQLiteStore(path, a.logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	a.logger.Debug("run registry ready", "path", path)
	a.store = st
	return st, nil
}
