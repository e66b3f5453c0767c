// Package internal provides the App struct that wires all components of the
// project management console together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/pm-console/internal/cli"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/internal/integration"
	"github.com/valter-silva-au/pm-console/internal/observability"
	"github.com/valter-silva-au/pm-console/internal/storage"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// HomeEnvVar names the environment variable that pins the console home.
const HomeEnvVar = "PMC_HOME"

// App holds all service dependencies of the console.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.ConsoleConfig

	// Storage layer
	SessionStore storage.SessionStore

	// Core services, rebuilt by Reconfigure.
	Auth        core.AuthService
	Permissions *core.PermissionMatrix
	Guard       *core.Guard
	Persons     *core.PersonScreen
	Projects    *core.ProjectScreen
	Tasks       *core.TaskScreen
	Logger      zerolog.Logger

	// Observability
	AuditLog   observability.AuditLog
	Summarizer observability.Summarizer

	logCloser io.Closer
}

// NewApp loads the configuration found in basePath and wires the console.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage ---
	app.SessionStore = storage.NewSessionStore(cfg.SessionFile)

	// --- Observability ---
	// An unwritable audit log disables history without blocking the console.
	if err := os.MkdirAll(filepath.Dir(cfg.AuditFile), 0o755); err == nil {
		if log, err := observability.NewJSONLAuditLog(cfg.AuditFile); err == nil {
			app.AuditLog = log
			app.Summarizer = observability.NewSummarizer(log)
		}
	}

	if err := app.build(cli.Overrides{}); err != nil {
		_ = app.Close()
		return nil, err
	}
	cli.Reconfigure = app.build
	return app, nil
}

// build creates the logger, the backend client and the screens from the
// loaded configuration with o applied, and hands them to the CLI.
func (a *App) build(o cli.Overrides) error {
	cfg := *a.Config
	if o.APIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(o.APIURL, "/")
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := a.ConfigMgr.ValidateConfig(&cfg); err != nil {
		return err
	}

	logger, closer, err := a.newLogger(cfg, o)
	if err != nil {
		return err
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
	a.logCloser = closer
	a.Logger = logger

	var auth core.AuthService
	client, err := integration.NewClient(integration.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  integration.TokenFunc(func() string { return auth.Token() }),
		Logger:  observability.PackageLogger(logger, "integration"),
	})
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}
	auth = core.NewAuthService(integration.NewAuthClient(client), &sessionStoreAdapter{store: a.SessionStore})

	perms, err := core.NewPermissionMatrix(cfg.Permissions)
	if err != nil {
		return err
	}

	var events core.EventLogger
	if a.AuditLog != nil {
		events = &auditLogAdapter{log: a.AuditLog, logger: observability.PackageLogger(logger, "audit")}
	}
	deps := core.ScreenDeps{
		Auth:        auth,
		Permissions: perms,
		Toaster:     cli.Toasts,
		Events:      events,
		Table:       cfg.Table,
	}

	a.Auth = auth
	a.Permissions = perms
	a.Guard = core.NewGuard(auth, core.DefaultRoutes())
	a.Persons = core.NewPersonScreen(integration.NewPersonClient(client), deps)
	a.Projects = core.NewProjectScreen(integration.NewProjectClient(client), deps)
	a.Tasks = core.NewTaskScreen(integration.NewTaskClient(client), deps)

	cli.Auth = a.Auth
	cli.Guard = a.Guard
	cli.Persons = a.Persons
	cli.Projects = a.Projects
	cli.Tasks = a.Tasks
	cli.Config = &cfg
	cli.Logger = logger
	cli.AuditLog = a.AuditLog
	cli.Summarizer = a.Summarizer
	cli.Events = events

	logger.Debug().Str("base_url", cfg.API.BaseURL).Str("home", a.BasePath).Msg("console configured")
	return nil
}

// newLogger logs to the configured file for the TUI and to stderr
// otherwise. Without an explicit --log-level stderr only shows warnings.
func (a *App) newLogger(cfg models.ConsoleConfig, o cli.Overrides) (zerolog.Logger, io.Closer, error) {
	if o.LogToFile {
		logger, closer, err := observability.NewFileLogger(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		return logger, closer, nil
	}
	level := o.LogLevel
	if level == "" {
		level = "warn"
	}
	return observability.NewConsoleLogger(level, os.Stderr), nil, nil
}

// Close releases the audit log and the log file.
func (a *App) Close() error {
	var errs []string
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		a.logCloser = nil
	}
	if a.AuditLog != nil {
		if err := a.AuditLog.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolveBasePath determines the console home directory. It checks the
// PMC_HOME environment variable first, then walks up from the current
// working directory looking for a .pmconsole.yaml file, falling back to the
// user config directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	if dir, err := os.Getwd(); err == nil {
		for {
			if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "pmconsole")
	}
	return "."
}

// --- Adapters ---
// These bridge the storage and observability packages to the interfaces
// core defines, keeping core free of their imports.

// sessionStoreAdapter adapts storage.SessionStore to core.SessionStore.
type sessionStoreAdapter struct {
	store storage.SessionStore
}

func (a *sessionStoreAdapter) Load() (core.SessionValues, error) {
	v, err := a.store.Load()
	if err != nil {
		return core.SessionValues{}, err
	}
	return core.SessionValues{Token: v.Token, Role: v.Role, UserID: v.UserID}, nil
}

func (a *sessionStoreAdapter) Save(v core.SessionValues) error {
	return a.store.Save(storage.SessionValues{Token: v.Token, Role: v.Role, UserID: v.UserID})
}

func (a *sessionStoreAdapter) Clear() error {
	return a.store.Clear()
}

// auditLogAdapter adapts observability.AuditLog to core.EventLogger.
type auditLogAdapter struct {
	log    observability.AuditLog
	logger zerolog.Logger
}

func (a *auditLogAdapter) LogEvent(eventType, message string, data map[string]any) error {
	level := observability.LevelInfo
	if eventType == core.EventPermissionDenied {
		level = observability.LevelWarn
	}
	if err := a.log.Write(observability.Event{
		Type:    eventType,
		Level:   level,
		Message: message,
		Data:    data,
	}); err != nil {
		a.logger.Warn().Err(err).Str("type", eventType).Msg("audit write failed")
		return err
	}
	return nil
}
