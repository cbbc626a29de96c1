package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/colibri-os/rlab/internal/adapters/server"
	"github.com/colibri-os/rlab/internal/adapters/server/common"
	"github.com/colibri-os/rlab/internal/adapters/storage/jsonfile"
	"github.com/colibri-os/rlab/internal/adapters/storage/sqlite"
	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/config"
	"github.com/colibri-os/rlab/internal/platform"
	"github.com/colibri-os/rlab/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes it through fang.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	overrides, err := config.LoadEnvOverrides()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return err
	}
	root := newRootCommand(overrides)
	root.SetArgs(args)
	root.SetIn(os.Stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalOptions stores persistent flag values shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	storePath  string
	driver     string
	appName    string
	devMode    bool
	env        config.EnvOverrides
}

// newRootCommand wires the dashboard root and every subcommand.
func newRootCommand(overrides config.EnvOverrides) *cobra.Command {
	opts := &globalOptions{env: overrides}

	defaultApp := "rlab"
	if overrides.AppName != "" {
		defaultApp = overrides.AppName
	}
	defaultDevMode := version == "dev"
	if overrides.DevMode != nil {
		defaultDevMode = *overrides.DevMode
	}

	root := &cobra.Command{
		Use:   "rlab",
		Short: "Reputation Lab progress tracker",
		Long:  "rlab records micro-actions, evidence, and milestones across the seven Colibrí categories and derives your completion index and level.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.storePath, "store", "", "path to the JSON event store")
	flags.StringVar(&opts.driver, "driver", "", "storage driver override (sqlite|jsonfile)")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newProgressCommand(opts),
		newTimelineCommand(opts),
		newSubmitCommand(opts),
		newCategoriesCommand(opts),
		newLevelsCommand(opts),
		newSeedCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// runDashboard launches the terminal dashboard.
func runDashboard(ctx context.Context, opts *globalOptions, stderr io.Writer) error {
	rt, err := openRuntime(opts, stderr, "tui")
	if err != nil {
		return err
	}
	defer rt.Close(stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	modelOpts := []tui.Option{tui.WithDisplayName(rt.cfg.Identity.DisplayName)}
	if rt.jsonStore != nil {
		changes, err := rt.jsonStore.Watch(ctx)
		if err != nil {
			rt.logger.Warn("jsonfile watch unavailable", "path", rt.jsonStore.Path(), "err", err)
		} else {
			modelOpts = append(modelOpts, tui.WithChangeFeed(changes))
		}
	}

	rt.logger.Info("command flow start", "command", "tui")
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(tui.NewModel(rt.svc, modelOpts...)).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runtime stores the resolved configuration, logger, store, and service for one command.
type runtime struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	jsonStore  *jsonfile.Store
	svc        *app.Service
	closeStore func() error
}

// openRuntime resolves paths and config, then opens the configured event store.
func openRuntime(opts *globalOptions, stderr io.Writer, command string) (*runtime, error) {
	paths, err := platform.Resolve(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := firstNonEmpty(opts.configPath, opts.env.ConfigPath, paths.ConfigPath)
	dbPath := firstNonEmpty(opts.dbPath, opts.env.DBPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		dbPath = paths.DBPath
	}
	storePath := firstNonEmpty(opts.storePath, opts.env.StorePath)

	defaultCfg := config.Default(dbPath)
	defaultCfg.Storage.JSONPath = paths.StorePath
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if storePath != "" {
		cfg.Storage.JSONPath = storePath
	}
	if driver := strings.TrimSpace(opts.driver); driver != "" {
		cfg.Storage.Driver = config.StorageDriver(strings.ToLower(driver))
	}
	cfg = opts.env.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The dashboard owns the terminal; runtime logs go to the dev-file sink only.
		logger.SetConsoleEnabled(false)
	}

	rt := &runtime{
		appName:    opts.appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", configPath, "driver", cfg.Storage.Driver, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	rules, err := progressRules(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	var store app.EventLog
	switch cfg.Storage.Driver {
	case config.StorageDriverJSONFile:
		logger.Info("opening jsonfile store", "path", cfg.Storage.JSONPath, "key", cfg.Storage.Key)
		jsonStore, err := jsonfile.Open(cfg.Storage.JSONPath, cfg.Storage.Key, jsonfile.WithLogger(logger))
		if err != nil {
			logger.Error("jsonfile open failed", "path", cfg.Storage.JSONPath, "err", err)
			_ = logger.Close()
			return nil, fmt.Errorf("open jsonfile store: %w", err)
		}
		rt.jsonStore = jsonStore
		store = jsonStore
	default:
		logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			_ = logger.Close()
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")
		rt.closeStore = repo.Close
		store = repo
	}

	rt.svc = app.NewService(store, newEventID, nil, app.ServiceConfig{Rules: rules, Logger: logger})
	logger.Debug("application service initialized", "levels", len(cfg.Levels), "micro_max", rules.MicroMax, "evidence_max", rules.EvidenceMax)
	return rt, nil
}

// Close releases the store and the dev-file sink.
func (rt *runtime) Close(stderr io.Writer) {
	if rt == nil {
		return
	}
	if rt.closeStore != nil {
		if err := rt.closeStore(); err != nil {
			rt.logger.Warn("store close failed", "err", err)
		}
	}
	if err := rt.logger.Close(); err != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// adapter exposes the service through the transport-facing contracts.
func (rt *runtime) adapter() *common.AppServiceAdapter {
	return common.NewAppServiceAdapter(rt.svc)
}

// withRuntime opens a runtime for one subcommand and logs the flow around fn.
func withRuntime(cmd *cobra.Command, opts *globalOptions, command string, fn func(context.Context, *runtime) error) error {
	stderr := cmd.ErrOrStderr()
	rt, err := openRuntime(opts, stderr, command)
	if err != nil {
		return err
	}
	defer rt.Close(stderr)

	rt.logger.Info("command flow start", "command", command)
	if err := fn(cmd.Context(), rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

// progressRules builds aggregation rules from the [progress] and [[levels]] config.
func progressRules(cfg config.Config) (app.ProgressRules, error) {
	ladder, err := cfg.LevelLadder()
	if err != nil {
		return app.ProgressRules{}, fmt.Errorf("build level ladder: %w", err)
	}
	return app.ProgressRules{
		MicroPerCategory:    cfg.Progress.MicroPerCategory,
		EvidencePerCategory: cfg.Progress.EvidencePerCategory,
		MicroMax:            cfg.Progress.MicroMax,
		EvidenceMax:         cfg.Progress.EvidenceMax,
		Ladder:              ladder,
	}, nil
}

// newEventID assigns ids to locally submitted events.
func newEventID() string {
	return "local-" + uuid.NewString()
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
