// Package core contains the business logic of the project management
// console: configuration, the session/auth service, route guarding, the
// role permission matrix, the generic table and dialog engines, and the
// per-entity screen controllers that compose them.
package core

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// ConfigFileName is the base name (without extension) of the console config.
const ConfigFileName = ".pmconsole"

// Entity names used as configuration keys.
const (
	EntityPerson  = "person"
	EntityProject = "project"
	EntityTask    = "task"
)

var knownEntities = []string{EntityPerson, EntityProject, EntityTask}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "off": true, "disabled": true,
}

// ConfigurationManager defines the interface for loading and validating the
// console configuration from .pmconsole.yaml, .env and PMC_* variables.
type ConfigurationManager interface {
	Load() (*models.ConsoleConfig, error)
	ValidateConfig(cfg *models.ConsoleConfig) error
	HomePath() string
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	// homePath is the directory holding .pmconsole.yaml, .env and the
	// session, audit and log files.
	homePath string
}

// NewConfigurationManager creates a ConfigurationManager rooted at homePath.
func NewConfigurationManager(homePath string) ConfigurationManager {
	return &viperConfigManager{homePath: homePath}
}

func (cm *viperConfigManager) HomePath() string { return cm.homePath }

// DefaultConsoleConfig returns a ConsoleConfig populated with defaults.
func DefaultConsoleConfig() *models.ConsoleConfig {
	return &models.ConsoleConfig{
		API: models.APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 15 * time.Second,
		},
		Table: models.TableConfig{
			PageSize:        5,
			PageSizeOptions: []int{5, 10, 20},
			SearchDebounce:  400 * time.Millisecond,
			ServerSide:      []string{EntityProject},
		},
		Log: models.LogConfig{
			Level: "info",
			File:  "pmc.log",
		},
		Permissions: DefaultPermissions(),
		SessionFile: "session.yaml",
		AuditFile:   "audit.jsonl",
	}
}

// Load reads .env (if present) into the process environment, then
// .pmconsole.yaml with PMC_* overrides. A missing config file yields the
// defaults. Relative file paths are resolved against the home directory.
func (cm *viperConfigManager) Load() (*models.ConsoleConfig, error) {
	cfg := DefaultConsoleConfig()

	envFile := filepath.Join(cm.homePath, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.homePath)
	v.SetEnvPrefix("PMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("table.page_size", cfg.Table.PageSize)
	v.SetDefault("table.page_size_options", cfg.Table.PageSizeOptions)
	v.SetDefault("table.search_debounce", cfg.Table.SearchDebounce)
	v.SetDefault("table.server_side", cfg.Table.ServerSide)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("session_file", cfg.SessionFile)
	v.SetDefault("audit_file", cfg.AuditFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	cfg.API.BaseURL = strings.TrimRight(v.GetString("api.base_url"), "/")
	cfg.API.Timeout = v.GetDuration("api.timeout")
	cfg.Table.PageSize = v.GetInt("table.page_size")
	cfg.Table.PageSizeOptions = v.GetIntSlice("table.page_size_options")
	cfg.Table.SearchDebounce = v.GetDuration("table.search_debounce")
	cfg.Table.ServerSide = splitList(v.GetStringSlice("table.server_side"))
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.File = cm.resolve(v.GetString("log.file"))
	cfg.SessionFile = cm.resolve(v.GetString("session_file"))
	cfg.AuditFile = cm.resolve(v.GetString("audit_file"))

	// Permission overrides replace the default grants per (entity, action).
	if raw, ok := v.Get("permissions").(map[string]any); ok {
		overrides, err := parsePermissionOverrides(raw)
		if err != nil {
			return nil, err
		}
		for entity, actions := range overrides {
			if cfg.Permissions[entity] == nil {
				cfg.Permissions[entity] = map[string][]string{}
			}
			for action, grants := range actions {
				cfg.Permissions[entity][action] = grants
			}
		}
	}

	return cfg, nil
}

func (cm *viperConfigManager) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cm.homePath, p)
}

// splitList flattens comma separated entries so that env overrides such as
// PMC_TABLE_SERVER_SIDE="person,project" behave like YAML lists.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parsePermissionOverrides(raw map[string]any) (models.PermissionConfig, error) {
	out := models.PermissionConfig{}
	for entity, rawActions := range raw {
		actions, ok := rawActions.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("permissions.%s must be a mapping of action to roles", entity)
		}
		out[entity] = map[string][]string{}
		for action, rawGrants := range actions {
			var grants []string
			switch g := rawGrants.(type) {
			case []any:
				for _, item := range g {
					grants = append(grants, fmt.Sprint(item))
				}
			case string:
				grants = splitList([]string{g})
			case nil:
			default:
				return nil, fmt.Errorf("permissions.%s.%s must be a list of roles", entity, action)
			}
			out[entity][action] = grants
		}
	}
	return out, nil
}

// ValidateConfig checks cfg for invalid values and reports every problem
// found in a single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.ConsoleConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if u, err := url.Parse(cfg.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("api.base_url %q must be an absolute http(s) URL", cfg.API.BaseURL))
	}
	if cfg.API.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("api.timeout must be positive, got %s", cfg.API.Timeout))
	}

	if cfg.Table.PageSize <= 0 {
		errs = append(errs, fmt.Sprintf("table.page_size must be positive, got %d", cfg.Table.PageSize))
	}
	for _, n := range cfg.Table.PageSizeOptions {
		if n <= 0 {
			errs = append(errs, fmt.Sprintf("table.page_size_options entries must be positive, got %d", n))
		}
	}
	if cfg.Table.SearchDebounce < 0 {
		errs = append(errs, fmt.Sprintf("table.search_debounce must not be negative, got %s", cfg.Table.SearchDebounce))
	}
	for _, e := range cfg.Table.ServerSide {
		if !isKnownEntity(e) {
			errs = append(errs, fmt.Sprintf(
				"table.server_side entry %q is invalid, must be one of: %s",
				e, strings.Join(knownEntities, ", "),
			))
		}
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error, off", cfg.Log.Level))
	}

	if _, err := NewPermissionMatrix(cfg.Permissions); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("console config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isKnownEntity(e string) bool {
	for _, k := range knownEntities {
		if k == e {
			return true
		}
	}
	return false
}
