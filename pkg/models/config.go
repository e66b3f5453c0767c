package models

import "time"

// APIConfig holds the REST backend connection settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TableConfig holds the defaults applied to every entity table.
type TableConfig struct {
	PageSize        int           `yaml:"page_size" mapstructure:"page_size"`
	PageSizeOptions []int         `yaml:"page_size_options" mapstructure:"page_size_options"`
	SearchDebounce  time.Duration `yaml:"search_debounce" mapstructure:"search_debounce"`
	// ServerSide lists the entities ("person", "project", "task") whose tables
	// page, sort and search on the backend instead of in memory.
	ServerSide []string `yaml:"server_side" mapstructure:"server_side"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// PermissionConfig maps entity -> action -> grants. A grant is a role name,
// optionally suffixed with ":own" to restrict it to records assigned to the
// session user (e.g. "User:own").
type PermissionConfig map[string]map[string][]string

// ConsoleConfig holds all settings read from .pmconsole.yaml via Viper.
type ConsoleConfig struct {
	API         APIConfig        `yaml:"api" mapstructure:"api"`
	Table       TableConfig      `yaml:"table" mapstructure:"table"`
	Log         LogConfig        `yaml:"log" mapstructure:"log"`
	Permissions PermissionConfig `yaml:"permissions,omitempty" mapstructure:"permissions"`
	SessionFile string           `yaml:"session_file" mapstructure:"session_file"`
	AuditFile   string           `yaml:"audit_file" mapstructure:"audit_file"`
}

// ServerSideFor reports whether the given entity table uses server paging.
func (c TableConfig) ServerSideFor(entity string) bool {
	for _, e := range c.ServerSide {
		if e == entity {
			return true
		}
	}
	return false
}
