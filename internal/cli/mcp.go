package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	pmcmcp "github.com/valter-silva-au/pm-console/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the pmc MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pmc MCP server on stdio",
	Long: `Start the pmc MCP server on stdio transport.

The server exposes console operations as MCP tools that AI assistants can
call under the stored session: list_persons, get_person, list_projects,
get_project, advance_sprint, list_tasks, get_task, update_task_status and
whoami.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}

		srv := pmcmcp.NewServer(pmcmcp.Services{
			Auth:     Auth,
			Persons:  Persons,
			Projects: Projects,
			Tasks:    Tasks,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
