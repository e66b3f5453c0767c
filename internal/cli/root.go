package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Global flags.
var (
	apiURLFlag   string
	logLevelFlag string
	outputFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "pmc",
	Short: "Project management console",
	Long: `pmc is an administrative console for the people, projects and tasks of a
project management backend.

Every command runs under the session stored by 'pmc login' and is gated by
the role of that session. 'pmc console' opens the interactive dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(outputFlag); err != nil {
			return err
		}
		if apiURLFlag == "" && logLevelFlag == "" {
			return nil
		}
		return reconfigure(Overrides{})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pmc %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

// reconfigure rebuilds the services with the global flags plus extra.
func reconfigure(extra Overrides) error {
	if Reconfigure == nil {
		return fmt.Errorf("console not initialized")
	}
	o := extra
	o.APIURL = apiURLFlag
	if o.LogLevel == "" {
		o.LogLevel = logLevelFlag
	}
	if err := Reconfigure(o); err != nil {
		return fmt.Errorf("applying flags: %w", err)
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiURLFlag, "api-url", "", "backend base URL, overrides api.base_url")
	pf.StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error, off)")
	pf.StringVarP(&outputFlag, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
