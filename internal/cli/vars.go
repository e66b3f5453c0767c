package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/internal/observability"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Console services, set during app initialization in app.go.
var (
	Auth     core.AuthService
	Guard    *core.Guard
	Persons  *core.PersonScreen
	Projects *core.ProjectScreen
	Tasks    *core.TaskScreen
	Config   *models.ConsoleConfig
	Logger   = zerolog.Nop()
)

// Observability service instances, set during app initialization in app.go.
var (
	AuditLog   observability.AuditLog
	Summarizer observability.Summarizer
	Events     core.EventLogger
)

// Overrides are the settings a command line can force on top of the
// loaded configuration.
type Overrides struct {
	APIURL   string
	LogLevel string
	// LogToFile sends logs to the configured log file instead of stderr.
	LogToFile bool
}

// Reconfigure rebuilds the services above with o applied. It is set in
// app.go; nil means the services cannot be rebuilt.
var Reconfigure func(o Overrides) error

// Toasts receives the notifications of every screen. The CLI prints them
// to stderr; the console TUI redirects them to its status line.
var Toasts = NewToastRouter(os.Stderr)
