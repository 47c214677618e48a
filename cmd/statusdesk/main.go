package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	serveradapter "github.com/hylla/statusdesk/internal/adapters/server"
	"github.com/hylla/statusdesk/internal/adapters/storage/sqlite"
	"github.com/hylla/statusdesk/internal/app"
	"github.com/hylla/statusdesk/internal/config"
	"github.com/hylla/statusdesk/internal/platform"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
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
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(&cli{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// cli holds global flag state shared by every subcommand.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the command tree.
func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "statusdesk",
		Short: "Status journals and dashboards for scheduled projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("STATUSDESK_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	appName := "statusdesk"
	if envApp := strings.TrimSpace(os.Getenv("STATUSDESK_APP_NAME")); envApp != "" {
		appName = envApp
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to config TOML")
	flags.StringVar(&c.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&c.appName, "app", appName, "application name for config/data path resolution")
	flags.BoolVar(&c.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(c),
		newReportCommand(c, app.ReportKindJournal),
		newReportCommand(c, app.ReportKindDashboard),
		newLevelsCommand(c),
		newAddEntryCommand(c),
		newImportCommand(c),
		newExportCommand(c),
		newServeCommand(c),
		newViewCommand(c),
	)
	return root
}

// paths resolves platform paths for the current flags.
func (c *cli) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: c.appName,
		DevMode: c.devMode,
	})
}

// session is one opened runtime: config, logging, storage and service.
type session struct {
	configPath string
	cfg        config.Config
	paths      platform.Paths
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// open resolves configuration and opens storage for command.
func (c *cli) open(command string, quietConsole bool) (*session, error) {
	paths, err := c.paths()
	if err != nil {
		return nil, err
	}

	configPath := c.configPath
	dbPath := c.dbPath
	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("STATUSDESK_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("STATUSDESK_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if strings.TrimSpace(cfg.Logging.DevFile.Dir) == "" {
		cfg.Logging.DevFile.Dir = paths.LogDir
	}

	logger, err := newRuntimeLogger(c.stderr, c.appName, c.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		// The viewer owns the terminal; runtime logs stay in the dev-file sink.
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", c.appName, "dev_mode", c.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Debug("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		TimeFormat:     cfg.Report.TimeFormat,
		CSSClass:       cfg.Report.CSSClass,
		WindowDays:     cfg.Report.WindowDays,
		LongVersion:    cfg.Report.LongVersion,
		SectionNumbers: cfg.Report.SectionNumbers,
		Diagnostics:    logger.Diagnostics(),
	})
	return &session{
		configPath: configPath,
		cfg:        cfg,
		paths:      paths,
		logger:     logger,
		repo:       repo,
		svc:        svc,
	}, nil
}

// Close releases storage and log sinks.
func (s *session) Close() {
	if closeErr := s.repo.Close(); closeErr != nil {
		s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", closeErr)
	}
	_ = s.logger.Close()
}

// withSession opens a session around fn and logs the command flow.
func (c *cli) withSession(command string, quietConsole bool, fn func(*session) error) error {
	s, err := c.open(command, quietConsole)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("command flow start", "command", command)
	if err := fn(s); err != nil {
		s.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	s.logger.Info("command flow complete", "command", command)
	return nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// parseTimeFlag accepts RFC3339 timestamps or YYYY-MM-DD dates; empty yields the zero time.
func parseTimeFlag(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want RFC3339 or YYYY-MM-DD", name, raw)
	}
	return ts.UTC(), nil
}
